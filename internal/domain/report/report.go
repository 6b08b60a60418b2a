// Package report assembles calculated processes into an emissions report
// grouped by source and GHG Protocol scope.
package report

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/carbonfactors/internal/domain/activity"
	"github.com/kailas-cloud/carbonfactors/internal/domain/factor"
)

// Scopes reported on every report.
var Scopes = [...]int{1, 2, 3}

// Process is one calculated emission: quantity × factor × GWP.
type Process struct {
	name        string
	description string
	quantity    activity.Quantity
	factor      factor.EmissionFactor
	similarity  float64
	emissions   float64
	trace       string
}

// NewProcess creates a calculated process. emissions is in kg CO2e.
func NewProcess(
	name, description string, quantity activity.Quantity,
	f factor.EmissionFactor, similarity, emissions float64, trace string,
) Process {
	return Process{
		name: name, description: description, quantity: quantity,
		factor: f, similarity: similarity, emissions: emissions, trace: trace,
	}
}

// Name returns the process name.
func (p Process) Name() string { return p.name }

// Description returns the matched factor description shown to readers.
func (p Process) Description() string { return p.description }

// Quantity returns the activity quantity in the factor's denominator unit.
func (p Process) Quantity() activity.Quantity { return p.quantity }

// Factor returns the resolved emission factor (owned by the catalog).
func (p Process) Factor() factor.EmissionFactor { return p.factor }

// Similarity returns the match score of the factor.
func (p Process) Similarity() float64 { return p.similarity }

// Emissions returns the CO2e mass in kg.
func (p Process) Emissions() float64 { return p.emissions }

// Trace returns the human-readable calculation.
func (p Process) Trace() string { return p.trace }

// Source groups processes of one source type.
type Source struct {
	sourceType string
	scope      int
	processes  []Process
	total      float64
}

// Type returns the source type ("production", "transport").
func (s Source) Type() string { return s.sourceType }

// Scope returns the GHG Protocol scope of the source.
func (s Source) Scope() int { return s.scope }

// Processes returns the processes in calculation order.
func (s Source) Processes() []Process { return s.processes }

// Total returns the sum of process emissions.
func (s Source) Total() float64 { return s.total }

// Report is an emissions report for one activity.
type Report struct {
	description string
	sources     []Source
	scopeTotals [3]float64
	total       float64
	assumptions []string
	dataSources []string
}

// Description returns the activity description.
func (r *Report) Description() string { return r.description }

// Sources returns sources in order of first appearance.
func (r *Report) Sources() []Source { return r.sources }

// Total returns the total emissions in kg CO2e.
func (r *Report) Total() float64 { return r.total }

// ScopeTotal returns the total of scope 1, 2 or 3; other scopes are 0.
func (r *Report) ScopeTotal(scope int) float64 {
	if scope < 1 || scope > 3 {
		return 0
	}
	return r.scopeTotals[scope-1]
}

// Assumptions returns assumptions in the order they were made.
func (r *Report) Assumptions() []string { return r.assumptions }

// DataSources returns the sorted, de-duplicated data sources.
func (r *Report) DataSources() []string { return r.dataSources }

// SourcedProcess is a process tagged with its source type.
type SourcedProcess struct {
	Source  string
	Process Process
}

// Input is everything the calculator hands to the assembler.
type Input struct {
	Description string
	Processes   []SourcedProcess
	Assumptions []string
	DataSources []string
}

// Assemble builds a report. It is pure and deterministic.
// scopeOf must map each source type to 1, 2 or 3; anything else counts as scope 3.
func Assemble(in Input, scopeOf func(sourceType string) int) Report {
	r := Report{
		description: in.Description,
		assumptions: append([]string{}, in.Assumptions...),
		dataSources: dedupeSorted(in.DataSources),
	}

	pos := make(map[string]int)
	for _, sp := range in.Processes {
		i, ok := pos[sp.Source]
		if !ok {
			scope := scopeOf(sp.Source)
			if scope < 1 || scope > 3 {
				scope = 3
			}
			i = len(r.sources)
			pos[sp.Source] = i
			r.sources = append(r.sources, Source{sourceType: sp.Source, scope: scope})
		}
		r.sources[i].processes = append(r.sources[i].processes, sp.Process)
		r.sources[i].total += sp.Process.emissions
	}

	for _, s := range r.sources {
		r.scopeTotals[s.scope-1] += s.total
		r.total += s.total
	}
	return r
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
