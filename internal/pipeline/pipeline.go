// Package pipeline runs request files through the generator: contract
// check, cache lookup, generation, summary validation, fact tables and lint.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/facts"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/logging"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/metrics"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/model"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/policy"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/repgen"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/validator"
)

// Result is the outcome of one request file.
type Result struct {
	RunID          string
	Path           string
	Name           string
	Request        repgen.Request
	Representation *representation.Representation
	Summary        representation.Summary
	Tables         facts.Tables
	Lint           *policy.Result
	// Stats is zero when the representation came from the cache.
	Stats    repgen.Stats
	Cached   bool
	Duration time.Duration
}

// Pipeline holds everything shared by the requests of one project.
type Pipeline struct {
	cfg     *config.Config
	root    string
	logger  *slog.Logger
	metrics *metrics.Collector

	db     chipdb.Database
	chipID string

	requests  *validator.RequestValidator
	summaries *validator.SummaryValidator
	lint      *policy.Engine
	cache     *repCache
	timing    *timingRecorder
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.metrics = c
		}
	}
}

// WithDatabase replaces the database selected by the configuration. id
// becomes part of the cache key.
func WithDatabase(db chipdb.Database, id string) Option {
	return func(p *Pipeline) {
		p.db = db
		p.chipID = id
	}
}

// OpenDatabase loads the configured chip database, or builds the fixture
// when none is set. The returned id identifies the database content.
func OpenDatabase(cfg *config.Config) (chipdb.Database, string, error) {
	if cfg.ChipDB == "" {
		db, err := chipdb.Fixture(chipdb.FixtureOptions{Width: cfg.Fixture.Width, Height: cfg.Fixture.Height})
		if err != nil {
			return nil, "", fmt.Errorf("building fixture: %w", err)
		}
		return db, fmt.Sprintf("fixture:%dx%d", cfg.Fixture.Width, cfg.Fixture.Height), nil
	}
	sum, err := hashFile(cfg.ChipDB)
	if err != nil {
		return nil, "", fmt.Errorf("hashing chip database: %w", err)
	}
	db, err := chipdb.Load(cfg.ChipDB)
	if err != nil {
		return nil, "", err
	}
	return db, "sha256:" + sum, nil
}

// New prepares the validators, the policy engine and the cache. Close must
// be called to persist the cache index.
func New(ctx context.Context, cfg *config.Config, root string, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		root:   root,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewCollector()
	}

	if p.db == nil {
		db, id, err := OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		p.db, p.chipID = db, id
	}

	var err error
	if p.requests, err = validator.NewRequestValidator(); err != nil {
		return nil, err
	}
	if p.summaries, err = validator.NewSummaryValidator(); err != nil {
		return nil, err
	}

	policyDir := cfg.Lint.PolicyDir
	if policyDir != "" && !filepath.IsAbs(policyDir) {
		policyDir = filepath.Join(root, policyDir)
	}
	if p.lint, err = policy.New(ctx, policyDir); err != nil {
		return nil, fmt.Errorf("policy engine: %w", err)
	}

	if cfg.CacheEnabled() {
		p.cache = newRepCache(cfg.CacheDir(root), EngineVersion)
		if err := p.cache.Load(); err != nil {
			p.logger.Warn("cache unavailable", "error", err)
			p.cache = nil
		}
	}

	timingPath := cfg.Timing
	if timingPath != "" && !filepath.IsAbs(timingPath) {
		timingPath = filepath.Join(root, timingPath)
	}
	p.timing = newTimingRecorder(time.Now(), timingPath)
	if err := p.timing.Err(); err != nil {
		p.logger.Warn("timing disabled", "path", timingPath, "error", err)
	}

	return p, nil
}

func (p *Pipeline) Metrics() *metrics.Collector {
	return p.metrics
}

func (p *Pipeline) ChipID() string {
	return p.chipID
}

// Close writes the cache index and closes the timing file.
func (p *Pipeline) Close() error {
	p.timing.Close()
	if p.cache == nil {
		return nil
	}
	return p.cache.Save()
}

// Run processes one request file.
func (p *Pipeline) Run(ctx context.Context, path string) (res *Result, err error) {
	start := time.Now()
	res = &Result{RunID: uuid.NewString(), Path: path}
	logger := p.logger.With("run", res.RunID, "request", path)

	defer func() {
		status := metrics.StatusOK
		switch {
		case err != nil:
			status = metrics.StatusError
		case res.Cached:
			status = metrics.StatusCached
		}
		res.Duration = time.Since(start)
		p.metrics.RecordRun(status)
		p.timing.RecordRequest(res.RunID, path, status, start, res.Duration)
		if err != nil {
			logger.Error("request failed", "error", err)
		}
	}()

	rf, err := config.LoadRequest(path, p.requests)
	if err != nil {
		return res, err
	}
	res.Name = rf.Name
	if res.Request, err = rf.Request(); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	key, err := cacheKey(res.Request, p.chipID)
	if err != nil {
		return res, err
	}

	if rep, ok := p.fromCache(path, key, logger); ok {
		res.Representation = rep
		res.Cached = true
	} else {
		gen := repgen.NewGenerator(p.db,
			repgen.WithLogger(logger),
			repgen.WithStageHook(func(stage string, stageStart time.Time, elapsed time.Duration) {
				p.metrics.ObserveStage(stage, elapsed)
				p.timing.RecordStage(res.RunID, stage, path, stageStart, elapsed)
			}),
		)
		if res.Representation, err = gen.Generate(ctx, res.Request); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		res.Stats = gen.Stats()
	}

	res.Summary = res.Representation.Summary()
	if err := p.summaries.Validate(res.Summary); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	res.Tables = facts.BuildTables(res.Representation)
	if res.Lint, err = p.evaluate(ctx, key, res.Tables, logger); err != nil {
		return res, fmt.Errorf("%s: lint: %w", path, err)
	}

	stats := res.Summary.Stats
	p.metrics.SetRepresentation(stats.Genes, stats.ConstantGenes, stats.SearchSpaceBits)
	p.metrics.SetViolations(res.Lint.Summary.Errors, res.Lint.Summary.Warnings, res.Lint.Summary.Info)

	if p.cache != nil && !res.Cached {
		if err := p.cache.Put(path, key, res.RunID, p.chipID, res.Summary); err != nil {
			logger.Warn("cache write failed", "error", err)
		}
	}

	logger.Info("representation ready",
		"genes", stats.Genes,
		"constant", stats.ConstantGenes,
		"search_space_bits", stats.SearchSpaceBits,
		"violations", res.Lint.Summary.TotalViolations,
		"cached", res.Cached,
	)
	return res, nil
}

func (p *Pipeline) fromCache(path, key string, logger *slog.Logger) (*representation.Representation, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, entry, ok, err := p.cache.Get(path, key)
	if err != nil {
		logger.Warn("cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if err := p.summaries.ValidateJSON(data); err != nil {
		logger.Warn("discarding cached representation", "error", err)
		return nil, false
	}
	var summary representation.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		logger.Warn("discarding cached representation", "error", err)
		return nil, false
	}
	rep, err := representation.FromSummary(summary)
	if err != nil {
		logger.Warn("discarding cached representation", "error", err)
		return nil, false
	}
	logger.Debug("cache hit", "cached_run", entry.RunID)
	return rep, true
}

// evaluate lints the tables, reusing the stored result of an unchanged
// representation when the policy and severities are unchanged too.
func (p *Pipeline) evaluate(ctx context.Context, key string, tables facts.Tables, logger *slog.Logger) (*policy.Result, error) {
	var configHash string
	if p.cache != nil {
		var err error
		if configHash, err = lintConfigHash(p.lint.RulesHash(), p.cfg.Lint.Rules); err != nil {
			return nil, err
		}
		entry, err := loadLintCache(p.cache.dir, key)
		if err != nil {
			logger.Warn("lint cache read failed", "error", err)
		} else if lintCacheValid(entry, configHash) {
			logger.Debug("lint cache hit")
			return &entry.Result, nil
		}
	}

	result, err := p.lint.Evaluate(ctx, tables)
	if err != nil {
		return nil, err
	}
	result.ApplySeverities(p.cfg.Lint.Rules)

	if p.cache != nil {
		entry := lintCacheEntry{Version: lintCacheVersion, ConfigHash: configHash, Result: *result}
		if err := saveLintCache(p.cache.dir, key, entry); err != nil {
			logger.Warn("lint cache write failed", "error", err)
		}
	}
	return result, nil
}

// RunAll processes the request files concurrently. Results keep the order
// of paths; failed requests leave a nil entry and are reported together.
func (p *Pipeline) RunAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			res, err := p.Run(ctx, path)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return results, fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(errs))
	}
	return results, nil
}

// Decode prepares one fresh configuration per chromosome and decodes them
// concurrently. workers < 1 uses the configured worker count.
func (p *Pipeline) Decode(ctx context.Context, rep *representation.Representation, chromos []model.Chromosome, workers int) ([]*model.MemoryConfig, error) {
	if workers < 1 {
		workers = p.cfg.Decode.Workers
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	configs := make([]*model.MemoryConfig, len(chromos))
	targets := make([]model.TargetConfiguration, len(chromos))
	for i := range chromos {
		configs[i] = model.NewMemoryConfig()
		if err := rep.PrepareConfig(configs[i]); err != nil {
			return nil, err
		}
		targets[i] = configs[i]
	}

	start := time.Now()
	if err := rep.DecodeBatch(ctx, targets, chromos, workers); err != nil {
		return nil, err
	}
	p.metrics.AddDecodes(len(chromos))
	p.metrics.ObserveStage("decode", time.Since(start))
	return configs, nil
}

// IsInputError reports whether err was caused by the request content
// rather than by the environment.
func IsInputError(err error) bool {
	return errors.Is(err, repgen.ErrInput)
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}
