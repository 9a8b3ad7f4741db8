package validator

import (
	"strings"
	"testing"
)

// TestRequestContractEnforcement checks that typos and wrong types in
// request files stop the run instead of being ignored.
func TestRequestContractEnforcement(t *testing.T) {
	v, err := NewRequestValidator()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name    string
		data    map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid_request",
			data: map[string]interface{}{
				"tiles":  []interface{}{[]interface{}{1, 1}, map[string]interface{}{"x": 2, "y": 1}},
				"output": []interface{}{[]interface{}{1, 1, 5}},
				"include_resources": []interface{}{
					map[string]interface{}{"tile": "all_logic", "name": "lutff_"},
				},
				"lut_functions": []interface{}{"nand", "CONST_0"},
				"gene_constraints": []interface{}{
					map[string]interface{}{
						"tile":   []interface{}{1, 1},
						"bits":   []interface{}{[]interface{}{0, 45}},
						"values": []interface{}{"1"},
					},
				},
			},
			wantErr: false,
		},
		{
			name:    "empty_request",
			data:    map[string]interface{}{},
			wantErr: false,
		},
		{
			name: "misspelled_key",
			data: map[string]interface{}{
				"tiles":            []interface{}{[]interface{}{1, 1}},
				"include_resource": []interface{}{},
			},
			wantErr: true,
		},
		{
			name: "negative_coordinate",
			data: map[string]interface{}{
				"tiles": []interface{}{[]interface{}{-1, 1}},
			},
			wantErr: true,
		},
		{
			name: "wildcard_in_tile_list",
			data: map[string]interface{}{
				"tiles": []interface{}{"all"},
			},
			wantErr: true,
		},
		{
			name: "output_lut_out_of_range",
			data: map[string]interface{}{
				"output": []interface{}{[]interface{}{1, 1, 8}},
			},
			wantErr: true,
		},
		{
			name: "unknown_wildcard",
			data: map[string]interface{}{
				"exclude_resources": []interface{}{
					map[string]interface{}{"tile": "everything", "name": ".*"},
				},
			},
			wantErr: true,
		},
		{
			name: "empty_name_matches_everything",
			data: map[string]interface{}{
				"tiles": []interface{}{[]interface{}{1, 1}},
				"exclude_resources": []interface{}{
					map[string]interface{}{"tile": "all", "name": ""},
				},
				"exclude_connections": []interface{}{
					map[string]interface{}{"tile": "all", "src": "", "dst": "x"},
				},
			},
			wantErr: false,
		},
		{
			name: "missing_regex",
			data: map[string]interface{}{
				"exclude_connections": []interface{}{
					map[string]interface{}{"tile": "all", "dst": "x"},
				},
			},
			wantErr: true,
		},
		{
			name: "unknown_function",
			data: map[string]interface{}{
				"lut_functions": []interface{}{"XOR3"},
			},
			wantErr: true,
		},
		{
			name: "unquoted_values",
			data: map[string]interface{}{
				"gene_constraints": []interface{}{
					map[string]interface{}{
						"bits":   []interface{}{[]interface{}{1, 1, 0, 45}},
						"values": []interface{}{1},
					},
				},
			},
			wantErr: true,
		},
		{
			name: "constraint_without_bits",
			data: map[string]interface{}{
				"gene_constraints": []interface{}{
					map[string]interface{}{
						"bits":   []interface{}{},
						"values": []interface{}{"1"},
					},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestValidateJSON(t *testing.T) {
	v, err := NewRequestValidator()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	if err := v.ValidateJSON([]byte(`{"tiles": [[1, 1]], "prune_no_viable_src": true}`)); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if err := v.ValidateJSON([]byte(`{"prune_no_viable_src": "yes"}`)); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestRequestValidationErrorsListsAll(t *testing.T) {
	v, err := NewRequestValidator()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	errs := v.ValidationErrors(map[string]interface{}{
		"tiles":  []interface{}{[]interface{}{-1, 1}},
		"bogus":  true,
		"output": []interface{}{[]interface{}{1, 1, 9}},
	})
	if len(errs) < 3 {
		t.Fatalf("expected several errors, got %v", errs)
	}
	joined := strings.Join(errs, "\n")
	for _, field := range []string{"bogus", "tiles", "output"} {
		if !strings.Contains(joined, field) {
			t.Fatalf("expected an error for %s in %v", field, errs)
		}
	}
	seen := make(map[string]bool)
	for _, e := range errs {
		if seen[e] {
			t.Fatalf("duplicate error %q", e)
		}
		seen[e] = true
	}

	errs = v.ValidationErrors(map[string]interface{}{"bogus": true})
	if len(errs) == 0 || !strings.Contains(errs[0], "bogus") {
		t.Fatalf("expected only the unknown field, got %v", errs)
	}

	if errs := v.ValidationErrors(map[string]interface{}{"tiles": []interface{}{}}); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}
