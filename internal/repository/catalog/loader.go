// Package catalog loads emission factors with precomputed embeddings from
// EFDB export files into an immutable factor.Catalog.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
)

const maxParallelFiles = 4

// Config describes where the catalog lives.
type Config struct {
	// Pattern is a filepath.Glob pattern, e.g. "data/efdb_embeddings/*.json".
	Pattern string
	// Version labels the catalog. Empty derives a content hash.
	Version string
	// Dimensions, when positive, is the embedding length every factor must have.
	Dimensions int
}

// Stats summarizes one load.
type Stats struct {
	Files   int
	Loaded  int
	Skipped int
}

// Loader reads catalog files.
type Loader struct {
	cfg    Config
	logger *zap.Logger
}

// NewLoader creates a catalog loader.
func NewLoader(cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

type fileResult struct {
	digest  []byte
	factors []factor.EmissionFactor
	skipped int
}

// Load reads every file matching the pattern and builds a catalog.
// Files are parsed concurrently and concatenated in sorted path order, so
// insertion order is stable across loads. Records that do not decode, lack an
// id or vector, or have a non-numeric value are skipped with a warning. A file
// that is unreadable or not a JSON array, or a factor with the wrong
// dimensionality, fails the load.
func (l *Loader) Load(ctx context.Context) (*factor.Catalog, Stats, error) {
	paths, err := filepath.Glob(l.cfg.Pattern)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("catalog pattern %q: %w", l.cfg.Pattern, err)
	}
	if len(paths) == 0 {
		return nil, Stats{}, fmt.Errorf("no catalog files match %q: %w", l.cfg.Pattern, domain.ErrCatalogEmpty)
	}
	sort.Strings(paths)

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := l.loadFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Files: len(paths)}
	var all []factor.EmissionFactor
	h := sha256.New()
	for _, res := range results {
		all = append(all, res.factors...)
		stats.Skipped += res.skipped
		h.Write(res.digest)
	}
	stats.Loaded = len(all)
	if len(all) == 0 {
		return nil, stats, fmt.Errorf("catalog files %q hold no usable factors: %w", l.cfg.Pattern, domain.ErrCatalogEmpty)
	}

	if l.cfg.Dimensions > 0 {
		for _, f := range all {
			if f.Dimensions() != l.cfg.Dimensions {
				return nil, stats, domain.NewIndexBuildError(f.ID(),
					fmt.Sprintf("embedding has %d dimensions, catalog expects %d", f.Dimensions(), l.cfg.Dimensions))
			}
		}
	}

	version := l.cfg.Version
	if version == "" {
		version = "sha256:" + hex.EncodeToString(h.Sum(nil))[:12]
	}

	cat, err := factor.NewCatalog(version, all)
	if err != nil {
		return nil, stats, fmt.Errorf("build catalog: %w", err)
	}

	l.logger.Info("Catalog loaded",
		zap.String("version", version),
		zap.Int("files", stats.Files),
		zap.Int("factors", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return cat, stats, nil
}

func (l *Loader) loadFile(path string) (fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{}, fmt.Errorf("read catalog file %s: %w", path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fileResult{}, fmt.Errorf("decode catalog file %s: %w", path, err)
	}

	digest := sha256.Sum256(data)
	res := fileResult{digest: digest[:], factors: make([]factor.EmissionFactor, 0, len(raw))}
	for i, msg := range raw {
		var r record
		f, err := decodeRecord(msg, &r)
		if err != nil {
			res.skipped++
			l.logger.Warn("Skipping catalog record",
				zap.String("file", path),
				zap.Int("position", i),
				zap.String("ef_id", string(r.ID)),
				zap.Error(err),
			)
			continue
		}
		res.factors = append(res.factors, f)
	}
	return res, nil
}

// decodeRecord decodes one record into r and converts it. A field of the
// wrong JSON type makes only this record invalid.
func decodeRecord(msg json.RawMessage, r *record) (factor.EmissionFactor, error) {
	if err := json.Unmarshal(msg, r); err != nil {
		return factor.EmissionFactor{}, fmt.Errorf("decode record: %w", err)
	}
	return toFactor(r)
}

func toFactor(r *record) (factor.EmissionFactor, error) {
	if r.ID == "" {
		return factor.EmissionFactor{}, fmt.Errorf("missing ef_id")
	}
	if len(r.Vector) == 0 {
		return factor.EmissionFactor{}, fmt.Errorf("missing vector")
	}
	value, err := r.value()
	if err != nil {
		return factor.EmissionFactor{}, err
	}
	f, err := factor.New(string(r.ID), r.category(), r.Gas, r.Description, value, r.Unit, r.Vector,
		factor.Provenance{Source: r.SourceOfData, Provider: r.DataProvider, Region: r.Region})
	if err != nil {
		return factor.EmissionFactor{}, fmt.Errorf("invalid factor: %w", err)
	}
	return f, nil
}
