package interrep

import (
	"fmt"
	"strings"
)

// LUTFunction is a Boolean function a LUT may be restricted to.
type LUTFunction int

const (
	Const0 LUTFunction = iota + 1
	Const1
	And
	Or
	Nand
	Nor
	Parity
)

var lutFunctionNames = map[LUTFunction]string{
	Const0: "CONST_0",
	Const1: "CONST_1",
	And:    "AND",
	Or:     "OR",
	Nand:   "NAND",
	Nor:    "NOR",
	Parity: "PARITY",
}

// AllLUTFunctions lists every function in declaration order.
var AllLUTFunctions = []LUTFunction{Const0, Const1, And, Or, Nand, Nor, Parity}

func (f LUTFunction) String() string {
	if n, ok := lutFunctionNames[f]; ok {
		return n
	}
	return fmt.Sprintf("LUTFunction(%d)", int(f))
}

// ParseLUTFunction accepts the upper case names, case insensitive.
func ParseLUTFunction(s string) (LUTFunction, error) {
	for f, n := range lutFunctionNames {
		if strings.EqualFold(n, s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown LUT function %q", s)
}

func (f LUTFunction) MarshalText() ([]byte, error) {
	if _, ok := lutFunctionNames[f]; !ok {
		return nil, fmt.Errorf("unknown LUT function %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *LUTFunction) UnmarshalText(text []byte) error {
	v, err := ParseLUTFunction(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// TruthTable computes the truth table of f for a LUT with inputCount inputs
// of which only usedInputs (ascending) drive the function. Entry t is the
// output for input vector t, input j being bit j of t.
func (f LUTFunction) TruthTable(inputCount int, usedInputs []int) ([]bool, error) {
	for i, u := range usedInputs {
		if u < 0 || u >= inputCount {
			return nil, fmt.Errorf("used input %d out of range [0, %d)", u, inputCount)
		}
		if i > 0 && usedInputs[i-1] >= u {
			return nil, fmt.Errorf("used inputs %v not ascending", usedInputs)
		}
	}

	values := make([]bool, 1<<inputCount)
	switch f {
	case Const0:
		return values, nil
	case Const1:
		for i := range values {
			values[i] = true
		}
		return values, nil
	}

	for t := range values {
		ones := 0
		for _, u := range usedInputs {
			ones += (t >> u) & 1
		}
		n := len(usedInputs)
		switch f {
		case And:
			values[t] = ones == n
		case Nand:
			values[t] = ones != n
		case Or:
			values[t] = ones > 0
		case Nor:
			values[t] = ones == 0
		case Parity:
			values[t] = ones%2 == 1
		default:
			return nil, fmt.Errorf("unsupported LUT function %s", f)
		}
	}
	return values, nil
}
