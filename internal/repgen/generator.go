package repgen

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/interrep"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

// Stage names passed to the stage hook.
const (
	StageLoad        = "load"
	StageBuild       = "build"
	StageRules       = "rules"
	StageGenes       = "genes"
	StageConstraints = "constraints"
	StageDerived     = "derived"
)

// StageHook is called after every stage with its duration.
type StageHook func(stage string, start time.Time, elapsed time.Duration)

// Stats describe the last Generate call.
type Stats struct {
	Vertices   int
	Edges      int
	Bits       int
	Pruned     int
	SuperGenes int
}

// Generator builds representations from one chip database. A Generator is
// not safe for concurrent use; create one per goroutine.
type Generator struct {
	db     chipdb.Database
	logger *slog.Logger
	hook   StageHook
	stats  Stats
}

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithStageHook registers a function observing the stage durations.
func WithStageHook(hook StageHook) Option {
	return func(g *Generator) {
		g.hook = hook
	}
}

func NewGenerator(db chipdb.Database, opts ...Option) *Generator {
	g := &Generator{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stats returns the figures of the last successful Generate call.
func (gen *Generator) Stats() Stats {
	return gen.stats
}

func (gen *Generator) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if gen.hook != nil {
		gen.hook(name, start, elapsed)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	gen.logger.Debug("stage done", slog.String("stage", name), slog.Duration("elapsed", elapsed))
	return nil
}

// Generate runs the whole pipeline for a request: load the tiles, rewrite
// CarryInSet, build the graph, apply the rules, synthesize and constrain
// the genes and derive the ColBufCtrl and carry data.
func (gen *Generator) Generate(ctx context.Context, req Request) (*representation.Representation, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	tiles := slices.Clone(req.Tiles)
	slices.SortFunc(tiles, chipdb.Tile.Compare)
	tiles = slices.Compact(tiles)

	var (
		nets    []chipdb.NetData
		configs = make(map[chipdb.Tile]chipdb.ConfigAssemblage, len(tiles))
		graph   *interrep.Graph
		special SpecialMap
		stats   Stats
		rep     = &representation.Representation{}
	)

	err := gen.stage(ctx, StageLoad, func() error {
		var err error
		nets, err = gen.db.NetData(tiles)
		if err != nil {
			return err
		}
		for _, t := range tiles {
			assem, err := gen.db.ConfigItems(t)
			if err != nil {
				return err
			}
			configs[t] = assem
		}
		nets, err = interrep.CarryInSetNet(configs, nets)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = gen.stage(ctx, StageBuild, func() error {
		var err error
		graph, err = interrep.Build(nets, configs, interrep.WithLogger(gen.logger))
		return err
	})
	if err != nil {
		return nil, err
	}

	err = gen.stage(ctx, StageRules, func() error {
		special = CreateSpecialMap(gen.db, tiles)
		SetExternalSource(graph, tiles)
		if err := ChooseResources(graph, req.ExcludeResources, req.IncludeResources, special); err != nil {
			return err
		}
		if err := ChooseConnections(graph, req.ExcludeConnections, req.IncludeConnections, special); err != nil {
			return err
		}
		if req.PruneNoViableSrc {
			stats.Pruned = PruneNoViableSrc(graph)
		}
		if len(req.LUTFunctions) > 0 {
			SetLUTFunctions(graph, req.LUTFunctions)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var genes []model.Gene
	err = gen.stage(ctx, StageGenes, func() error {
		var err error
		genes, err = CreateGenes(graph, configs)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = gen.stage(ctx, StageConstraints, func() error {
		var err error
		genes, stats.SuperGenes, err = ApplyGeneConstraints(genes, req.GeneConstraints, special)
		if err != nil {
			return err
		}
		rep.Constant, rep.Genes, rep.SectionLengths = SortGenes(genes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = gen.stage(ctx, StageDerived, func() error {
		var err error
		rep.ColBufCtrl, err = ColBufCtrlCoordinates(graph, gen.db)
		if err != nil {
			return err
		}
		rep.ColBufCtrlItems, err = gen.db.ColBufCtrlItems(rep.ColBufCtrl)
		if err != nil {
			return err
		}
		rep.Carry, err = CarryData(graph)
		if err != nil {
			return err
		}
		rep.Output = slices.Clone(req.Output)
		slices.SortFunc(rep.Output, chipdb.LUTPosition.Compare)
		rep.Output = slices.Compact(rep.Output)
		return rep.Check()
	})
	if err != nil {
		return nil, err
	}

	stats.Vertices = len(graph.Vertices())
	stats.Edges = len(graph.Edges())
	stats.Bits = graph.BitCount()
	gen.stats = stats
	gen.logger.Debug("generated representation",
		slog.Int("tiles", len(tiles)),
		slog.Int("genes", len(rep.Genes)),
		slog.Int("constant", len(rep.Constant)),
		slog.Int("super_genes", stats.SuperGenes),
		slog.Int("colbufctrl", len(rep.ColBufCtrl)))
	return rep, nil
}
