package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/facts"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/logging"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/pipeline"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/validator"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("icerep-facts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("output", "", "write facts JSON to file (default: stdout)")
	fs.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	deltaFrom := fs.String("delta-from", "", "previous facts JSON to compute delta from")
	deltaOut := fs.String("delta-out", "", "write delta JSON to file (requires --delta-from)")
	tileList := fs.String("tiles", "", "only keep rows of these tiles, e.g. 1,1;2,1")
	configPath := fs.String("config", "", "configuration file (default: search from the request directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("usage: icerep-facts [--output file] [--tiles x,y;...] [--delta-from prev.json --delta-out delta.json] <request>")
	}
	if (*deltaFrom == "") != (*deltaOut == "") {
		return fmt.Errorf("--delta-from and --delta-out must be used together")
	}

	requestPath := rest[0]
	root := filepath.Dir(requestPath)
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var tiles map[chipdb.Tile]bool
	if *tileList != "" {
		if tiles, err = parseTiles(*tileList); err != nil {
			return err
		}
	}

	logger, err := logging.New(logging.Config{Level: "error", Output: stderr})
	if err != nil {
		return err
	}
	p, err := pipeline.New(ctx, cfg, root, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, requestPath)
	if cerr := p.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	v, err := validator.NewFactsValidator()
	if err != nil {
		return err
	}
	if err := v.Validate(res.Tables); err != nil {
		return err
	}

	tables := res.Tables
	if tiles != nil {
		tables = facts.FilterTablesByTiles(tables, tiles)
	}

	if *output != "" {
		if err := writeJSON(*output, tables); err != nil {
			return fmt.Errorf("writing facts: %w", err)
		}
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			return fmt.Errorf("encoding facts: %w", err)
		}
	}

	if *deltaFrom != "" {
		prev, err := readTables(*deltaFrom)
		if err != nil {
			return fmt.Errorf("reading delta-from: %w", err)
		}
		delta := facts.ComputeDelta(prev, res.Tables)
		if tiles != nil {
			delta = facts.FilterDeltaByTiles(delta, tiles)
		}
		if err := writeJSON(*deltaOut, delta); err != nil {
			return fmt.Errorf("writing delta: %w", err)
		}
	}
	return nil
}

// parseTiles reads "x,y;x,y" lists.
func parseTiles(s string) (map[chipdb.Tile]bool, error) {
	tiles := make(map[chipdb.Tile]bool)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		xy := strings.Split(part, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid tile %q, want x,y", part)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(xy[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(xy[1]))
		if errX != nil || errY != nil || x < 0 || y < 0 {
			return nil, fmt.Errorf("invalid tile %q, want x,y", part)
		}
		tiles[chipdb.Tile{X: x, Y: y}] = true
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("no tiles in %q", s)
	}
	return tiles, nil
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
