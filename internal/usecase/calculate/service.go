// Package calculate turns activities into emissions reports: it normalizes
// the activity, matches every component to an emission factor, applies
// quantity × factor × GWP and assembles the scoped report.
package calculate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/gwp"
	"github.com/kailas-cloud/carbonfactors/internal/domain/report"
	"github.com/kailas-cloud/carbonfactors/internal/domain/unit"
	"github.com/kailas-cloud/carbonfactors/internal/logger"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/matching"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
)

// defaultDisposalID identifies an inline default disposal factor in reports.
const defaultDisposalID = "default-disposal"

// Service is the emissions calculator. Safe for concurrent use.
type Service struct {
	norm       Normalizer
	match      Matcher
	catalog    Catalog
	gwpVersion string
	cfg        Config
	disposal   *factor.EmissionFactor
}

// New creates a calculator. gwpVersion labels the GWP table in data sources.
// An enabled default disposal must resolve to a catalog factor or a valid inline factor.
func New(norm Normalizer, match Matcher, catalog Catalog, gwpVersion string, cfg Config) (*Service, error) {
	cfg.applyDefaults()
	if gwpVersion == "" {
		gwpVersion = gwp.DefaultVersion
	}
	s := &Service{norm: norm, match: match, catalog: catalog, gwpVersion: gwpVersion, cfg: cfg}

	if cfg.Disposal.Enabled {
		f, err := resolveDisposal(cfg.Disposal, catalog)
		if err != nil {
			return nil, err
		}
		s.disposal = &f
	}
	return s, nil
}

func resolveDisposal(d DisposalDefault, catalog Catalog) (factor.EmissionFactor, error) {
	if id := strings.TrimSpace(d.FactorID); id != "" {
		if f, ok := catalog.Get(id); ok {
			return f, nil
		}
		if d.Unit == "" {
			return factor.EmissionFactor{}, fmt.Errorf("default disposal factor %q not in catalog", id)
		}
	}
	if _, err := unit.ParseFactorUnit(d.Unit); err != nil {
		return factor.EmissionFactor{}, fmt.Errorf("default disposal factor: %w", err)
	}
	if d.Value < 0 {
		return factor.EmissionFactor{}, fmt.Errorf("default disposal factor: value must be non-negative, got %v", d.Value)
	}
	desc := d.Description
	if desc == "" {
		desc = "Default disposal"
	}
	return factor.Reconstruct(defaultDisposalID, "", "", desc, d.Value, d.Unit, nil,
		factor.Provenance{Source: d.Source}), nil
}

// Calculate produces the report for one activity.
// Invalid input, an empty catalog, embedding failures and cancellation are
// returned as errors; unmatched processes are excluded and recorded as assumptions.
func (s *Service) Calculate(ctx context.Context, in normalize.Input) (report.Report, error) {
	if s.catalog.Len() == 0 {
		metrics.ReportsTotal.WithLabelValues("failed").Inc()
		return report.Report{}, domain.ErrCatalogEmpty
	}
	act, assumptions, err := s.normalize(in)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("failed").Inc()
		return report.Report{}, err
	}
	return s.calculate(ctx, act, assumptions)
}

// CalculateBatch produces one report per activity, in input order.
// All activities are validated before any matching starts; the first
// failing activity aborts the batch.
func (s *Service) CalculateBatch(ctx context.Context, inputs []normalize.Input) ([]report.Report, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no activities", domain.ErrInvalidActivity)
	}
	if s.catalog.Len() == 0 {
		metrics.ReportsTotal.WithLabelValues("failed").Add(float64(len(inputs)))
		return nil, domain.ErrCatalogEmpty
	}

	acts := make([]*activity.Activity, len(inputs))
	pre := make([][]string, len(inputs))
	for i, in := range inputs {
		act, assumptions, err := s.normalize(in)
		if err != nil {
			metrics.ReportsTotal.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		acts[i], pre[i] = act, assumptions
	}

	reports := make([]report.Report, len(acts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range acts {
		g.Go(func() error {
			r, err := s.calculate(logger.With(gctx, zap.Int("activity", i)), acts[i], pre[i])
			if err != nil {
				return fmt.Errorf("activity %d: %w", i, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) normalize(in normalize.Input) (*activity.Activity, []string, error) {
	act, err := s.norm.Normalize(in)
	if err == nil {
		return act, nil, nil
	}
	var uq *domain.UnparsableQuantityError
	if act != nil && errors.As(err, &uq) {
		return act, []string{fmt.Sprintf("No quantity could be parsed from %q; assumed 1 unspecified unit.", uq.Input)}, nil
	}
	return nil, nil, err
}

func (s *Service) calculate(ctx context.Context, act *activity.Activity, assumptions []string) (report.Report, error) {
	log := logger.FromContext(ctx)
	assumptions = append(assumptions, act.Notes()...)

	var (
		procs       []report.SourcedProcess
		dataSources []string
		omitted     int
		nonCO2e     bool
	)
	add := func(source string, p report.Process, gas string) {
		procs = append(procs, report.SourcedProcess{Source: source, Process: p})
		dataSources = append(dataSources, p.Factor().Provenance().Label())
		if gwp.NormalizeGas(gas) != gwp.CO2e {
			nonCO2e = true
		}
	}

	for _, c := range act.Components() {
		m, err := s.match.Match(ctx, c)
		if err != nil {
			if fatal(err) {
				metrics.ReportsTotal.WithLabelValues("failed").Inc()
				return report.Report{}, fmt.Errorf("match %q: %w", c.Name(), err)
			}
			omitted++
			metrics.ProcessesTotal.WithLabelValues(c.SourceType(), "no_match").Inc()
			assumptions = append(assumptions,
				fmt.Sprintf("%s process %q excluded from totals: %s.", c.SourceType(), c.Name(), reasonOf(err)))
			log.Debug("process excluded",
				zap.String("process", c.Name()),
				zap.String("source", c.SourceType()),
				zap.Error(err),
			)
			continue
		}

		assumptions = append(assumptions, m.Assumptions...)
		outcome := "matched"
		if m.LowConfidence {
			outcome = "low_confidence"
		}
		metrics.ProcessesTotal.WithLabelValues(c.SourceType(), outcome).Inc()
		add(c.SourceType(), process(c.Name(), m.Primary), m.Primary.Gas)
	}

	if s.disposal != nil && !act.HasSource(activity.SourceDisposal) {
		if p, gas, note, ok := s.defaultDisposal(act); ok {
			add(activity.SourceDisposal, p, gas)
			assumptions = append(assumptions, note)
		} else if note != "" {
			assumptions = append(assumptions, note)
		}
	}

	assumptions = append(assumptions, s.scopeAssumptions(procs)...)
	if nonCO2e {
		dataSources = append(dataSources, "GWP: "+s.gwpVersion)
	}

	rep := report.Assemble(report.Input{
		Description: act.Description(),
		Processes:   procs,
		Assumptions: assumptions,
		DataSources: dataSources,
	}, s.scopeOf)

	status := "complete"
	switch {
	case len(procs) == 0:
		status = "failed"
	case omitted > 0:
		status = "partial"
	}
	metrics.ReportsTotal.WithLabelValues(status).Inc()

	log.Info("emissions calculated",
		zap.String("activity", act.Description()),
		zap.Int("processes", len(procs)),
		zap.Int("omitted", omitted),
		zap.Float64("total_kg_co2e", rep.Total()),
	)
	return rep, nil
}

// defaultDisposal applies the configured disposal factor to the activity quantity.
// A non-empty note with ok=false explains why it was skipped.
func (s *Service) defaultDisposal(act *activity.Activity) (report.Process, string, string, bool) {
	q := act.Quantity()
	if q.IsUnspecified() {
		return report.Process{}, "", "", false
	}
	comp, err := activity.NewComponent("disposal", activity.SourceDisposal, "", "", q)
	if err != nil {
		return report.Process{}, "", "", false
	}
	cand, err := s.match.Resolve(comp, *s.disposal)
	if err != nil {
		return report.Process{}, "", fmt.Sprintf("Default disposal factor not applied: %s.", reasonOf(err)), false
	}
	metrics.ProcessesTotal.WithLabelValues(activity.SourceDisposal, "default").Inc()
	note := fmt.Sprintf("No disposal stated; default disposal factor %q (%s) applied to %s.",
		cand.Factor.Description(), factorText(cand.Factor), q)
	return process("disposal (default)", cand), cand.Gas, note, true
}

func (s *Service) scopeOf(sourceType string) int {
	scope, _ := s.cfg.ScopeOf(sourceType)
	return scope
}

func (s *Service) scopeAssumptions(procs []report.SourcedProcess) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range procs {
		if seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		if _, ok := s.cfg.ScopeOf(p.Source); !ok {
			out = append(out, fmt.Sprintf("Source type %q has no scope mapping; reported under scope %d.",
				p.Source, s.cfg.DefaultScope))
		}
	}
	return out
}

// process computes emissions for a resolved candidate in kg CO2e.
func process(name string, c matching.Candidate) report.Process {
	emissions := c.Quantity.Value() * c.Factor.Value() * c.FactorUnit.Emitted().Scale() * c.GWP
	return report.NewProcess(name, c.Factor.Description(), c.Quantity, c.Factor, c.Similarity, emissions,
		trace(c, emissions))
}

// trace renders "20 kg × 1.5 kg CO2e/kg × GWP(CO2e)=1 = 30 kg CO2e".
func trace(c matching.Candidate, emissions float64) string {
	var b strings.Builder
	if c.Converted() {
		fmt.Fprintf(&b, "(%s → %s)", c.From, c.Quantity)
	} else {
		b.WriteString(c.Quantity.String())
	}
	b.WriteString(" × ")
	b.WriteString(factorText(c.Factor))
	if scale := c.FactorUnit.Emitted().Scale(); scale != 1 {
		fmt.Fprintf(&b, " × %s kg/%s", activity.FormatNumber(scale), c.FactorUnit.Emitted().Symbol())
	}
	fmt.Fprintf(&b, " × GWP(%s)=%s", gwp.NormalizeGas(c.Gas), activity.FormatNumber(c.GWP))
	fmt.Fprintf(&b, " = %s kg CO2e", activity.FormatNumber(emissions))
	return b.String()
}

func factorText(f factor.EmissionFactor) string {
	return activity.FormatNumber(f.Value()) + " " + f.Unit()
}

// fatal reports errors that abort the whole report rather than one process.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrEmbedding) ||
		errors.Is(err, domain.ErrProviderUnavailable) ||
		errors.Is(err, domain.ErrCatalogEmpty)
}

func reasonOf(err error) string {
	var nm *domain.NoMatchingFactorError
	if errors.As(err, &nm) {
		return nm.Reason
	}
	return err.Error()
}
