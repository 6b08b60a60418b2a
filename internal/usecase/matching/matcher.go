// Package matching resolves an activity component to the emission factor it
// is calculated with: semantic candidates from search, filtered by unit
// compatibility and a known greenhouse gas.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/gwp"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/domain/unit"
	"github.com/kailas-cloud/carbonfactors/internal/logger"
)

// Defaults.
const (
	DefaultCandidates    = 5
	DefaultMinSimilarity = 0.5
)

// Config tunes matching.
type Config struct {
	// Candidates is how many search hits are considered per component.
	Candidates int
	// MinSimilarity is the score below which a match is flagged as low
	// confidence. Nil selects DefaultMinSimilarity; 0 disables the flag for
	// non-negative scores.
	MinSimilarity *float64
}

// Candidate is a factor usable for a component, with the component quantity
// expressed in the factor's activity unit.
type Candidate struct {
	Factor     factor.EmissionFactor
	Similarity float64
	FactorUnit unit.FactorUnit
	Gas        string
	GWP        float64
	// From is the component quantity form that converted; Quantity is it in FactorUnit.Per().
	From     activity.Quantity
	Quantity activity.Quantity
}

// Converted reports whether a unit conversion was applied.
func (c Candidate) Converted() bool {
	return c.From.UnitSymbol() != c.Quantity.UnitSymbol()
}

// Match is the resolution of one component.
type Match struct {
	Primary Candidate
	// Alternates are further compatible candidates in rank order, kept for audit.
	Alternates    []Candidate
	LowConfidence bool
	Assumptions   []string
}

// Matcher resolves components against one catalog snapshot.
type Matcher struct {
	search Searcher
	gwp    GWPTable
	cfg    Config
	minSim float64
}

// New creates a matcher. Zero config values select the defaults.
func New(search Searcher, table GWPTable, cfg Config) *Matcher {
	if cfg.Candidates <= 0 {
		cfg.Candidates = DefaultCandidates
	}
	minSim := DefaultMinSimilarity
	if cfg.MinSimilarity != nil {
		minSim = *cfg.MinSimilarity
	}
	if table == nil {
		table = gwp.Default()
	}
	return &Matcher{search: search, gwp: table, cfg: cfg, minSim: minSim}
}

// Threshold returns a MinSimilarity value.
func Threshold(v float64) *float64 { return &v }

// Match searches candidates for c and selects the most similar one whose
// unit accepts one of c's quantity forms. It fails with a
// *domain.NoMatchingFactorError when search returns nothing or no candidate
// is usable; embedding and catalog errors are returned as they are.
func (m *Matcher) Match(ctx context.Context, c activity.Component) (Match, error) {
	req, err := request.New(c.Query(), m.cfg.Candidates, c.CategoryHint())
	if err != nil {
		return Match{}, domain.NewNoMatchingFactor(c.Name(), err.Error())
	}
	res, err := m.search.Search(ctx, &req)
	if err != nil {
		return Match{}, fmt.Errorf("search candidates for %q: %w", c.Name(), err)
	}
	if res.Len() == 0 {
		reason := "no candidate factors"
		if c.CategoryHint() != "" {
			reason = fmt.Sprintf("no candidate factors in category %q", c.CategoryHint())
		}
		return Match{}, domain.NewNoMatchingFactor(c.Name(), reason)
	}

	log := logger.FromContext(ctx)
	var (
		compatible []Candidate
		rejected   []string
	)
	for _, hit := range res.Hits() {
		cand, err := m.resolve(c, hit.Factor(), hit.Score())
		if err != nil {
			log.Debug("Candidate discarded",
				zap.String("component", c.Name()),
				zap.String("factor_id", hit.Factor().ID()),
				zap.Error(err),
			)
			rejected = append(rejected, fmt.Sprintf("%s (%s)", hit.Factor().ID(), reasonOf(err)))
			continue
		}
		compatible = append(compatible, cand)
	}
	if len(compatible) == 0 {
		return Match{}, domain.NewNoMatchingFactor(c.Name(), fmt.Sprintf(
			"none of %d candidates accepts %s: %s", res.Len(), formsText(c), strings.Join(rejected, "; ")))
	}

	match := Match{Primary: compatible[0], Alternates: compatible[1:]}
	p := match.Primary
	if c.Quantity().IsUnspecified() {
		match.Assumptions = append(match.Assumptions, fmt.Sprintf(
			"Quantity of %q not stated; assumed 1 %s, the activity unit of factor %s.",
			c.Name(), p.Quantity.UnitSymbol(), p.Factor.ID()))
	}
	if p.Similarity < m.minSim {
		match.LowConfidence = true
		match.Assumptions = append(match.Assumptions, fmt.Sprintf(
			"Low-confidence match for %q: factor %s (%s) scored %.2f, below %.2f.",
			c.Name(), p.Factor.ID(), p.Factor.Description(), p.Similarity, m.minSim))
	}
	return match, nil
}

// Resolve checks a specific factor against c, bypassing search. Used for
// configured fallback factors; the candidate has similarity 0.
func (m *Matcher) Resolve(c activity.Component, f factor.EmissionFactor) (Candidate, error) {
	return m.resolve(c, f, 0)
}

var (
	errFactorUnit = errors.New("unparsable factor unit")
	errGas        = errors.New("unknown gas")
)

func (m *Matcher) resolve(c activity.Component, f factor.EmissionFactor, score float64) (Candidate, error) {
	fu, err := unit.ParseFactorUnit(f.Unit())
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %w", errFactorUnit, err)
	}
	gas := fu.Gas()
	if gas == "" {
		gas = f.Gas()
	}
	g, err := m.gwp.Lookup(gas)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %w", errGas, err)
	}

	cand := Candidate{Factor: f, Similarity: score, FactorUnit: fu, Gas: gwp.NormalizeGas(gas), GWP: g}
	for _, form := range c.Forms() {
		if form.IsUnspecified() {
			one, err := activity.NewQuantity(1, fu.Per())
			if err != nil {
				return Candidate{}, err
			}
			cand.From, cand.Quantity = form, one
			return cand, nil
		}
		q, err := form.To(fu.Per())
		if err != nil {
			continue
		}
		cand.From, cand.Quantity = form, q
		return cand, nil
	}
	return Candidate{}, fmt.Errorf("%w: factor is per %s (%s)",
		unit.ErrIncompatibleUnits, fu.Per().Symbol(), fu.Per().Dimension().Name())
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, errFactorUnit):
		return "unparsable unit"
	case errors.Is(err, errGas):
		return "unknown gas"
	default:
		return err.Error()
	}
}

func formsText(c activity.Component) string {
	forms := c.Forms()
	parts := make([]string, len(forms))
	for i, f := range forms {
		parts[i] = f.String()
	}
	return strings.Join(parts, " or ")
}
