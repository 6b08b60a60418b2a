package carbonfactors

import (
	"strconv"

	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
	"github.com/kailas-cloud/carbonfactors/internal/domain/report"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
)

// Factor is one emission factor of the catalog.
type Factor struct {
	ID          string
	Category    string // IPCC category code, e.g. "2.C.1"
	Gas         string
	Description string
	Value       float64
	Unit        string // e.g. "kg CO2e/kg"
	Source      string
	Region      string
}

// SearchHit is a factor ranked by cosine similarity to the query.
type SearchHit struct {
	Factor     Factor
	Similarity float64
}

// SearchResult holds hits in descending similarity order and the
// L2-normalized query vector.
type SearchResult struct {
	Hits        []SearchHit
	QueryVector []float32
}

// Activity is a raw activity to calculate.
type Activity struct {
	Description string
	// QuantityText is parsed when Quantity is nil, e.g. "2.5 t".
	QuantityText string
	// Quantity and Unit override anything stated in the description.
	Quantity     *float64
	Unit         string
	CategoryHint string
	SourceType   string
}

// Process is one calculated component of an emission source.
type Process struct {
	Name        string
	Description string
	FactorID    string
	Similarity  float64
	Quantity    string
	Factor      string
	Calculation string
	Emissions   float64 // kg CO2e
}

// EmissionSource groups processes of one source type under a GHG scope.
type EmissionSource struct {
	Type      string
	Scope     int
	Processes []Process
	Total     float64
}

// Report is the emissions report of one activity. Totals are kg CO2e.
type Report struct {
	Description string
	Sources     []EmissionSource
	Total       float64
	Scope1      float64
	Scope2      float64
	Scope3      float64
	Assumptions []string
	DataSources []string
}

func factorFromDomain(f *factor.EmissionFactor) Factor {
	return Factor{
		ID:          f.ID(),
		Category:    f.Category(),
		Gas:         f.Gas(),
		Description: f.Description(),
		Value:       f.Value(),
		Unit:        f.Unit(),
		Source:      f.Provenance().Label(),
		Region:      f.Provenance().Region,
	}
}

func searchResultFromDomain(r *result.Result) SearchResult {
	hits := make([]SearchHit, 0, r.Len())
	for _, h := range r.Hits() {
		f := h.Factor()
		hits = append(hits, SearchHit{Factor: factorFromDomain(&f), Similarity: h.Score()})
	}
	return SearchResult{Hits: hits, QueryVector: r.QueryVector()}
}

func activityToInput(a Activity) normalize.Input {
	return normalize.Input(a)
}

func reportFromDomain(r *report.Report) Report {
	out := Report{
		Description: r.Description(),
		Total:       r.Total(),
		Scope1:      r.ScopeTotal(1),
		Scope2:      r.ScopeTotal(2),
		Scope3:      r.ScopeTotal(3),
		Assumptions: r.Assumptions(),
		DataSources: r.DataSources(),
	}
	for _, s := range r.Sources() {
		src := EmissionSource{Type: s.Type(), Scope: s.Scope(), Total: s.Total()}
		for _, p := range s.Processes() {
			f := p.Factor()
			src.Processes = append(src.Processes, Process{
				Name:        p.Name(),
				Description: p.Description(),
				FactorID:    f.ID(),
				Similarity:  p.Similarity(),
				Quantity:    p.Quantity().String(),
				Factor:      factorText(&f),
				Calculation: p.Trace(),
				Emissions:   p.Emissions(),
			})
		}
		out.Sources = append(out.Sources, src)
	}
	return out
}

func factorText(f *factor.EmissionFactor) string {
	return strconv.FormatFloat(f.Value(), 'g', -1, 64) + " " + f.Unit()
}
