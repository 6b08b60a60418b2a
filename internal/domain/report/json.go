package report

import (
	"encoding/json"
	"strconv"
)

type reportJSON struct {
	ActivityDescription  string       `json:"activity_description"`
	EmissionSources      []sourceJSON `json:"emission_sources"`
	TotalEmissions       float64      `json:"total_emissions"`
	TotalScope1Emissions float64      `json:"total_scope_1_emissions"`
	TotalScope2Emissions float64      `json:"total_scope_2_emissions"`
	TotalScope3Emissions float64      `json:"total_scope_3_emissions"`
	Assumptions          []string     `json:"assumptions"`
	DataSources          []string     `json:"data_sources"`
}

type sourceJSON struct {
	Source         string        `json:"source"`
	Scope          int           `json:"scope"`
	Processes      []processJSON `json:"processes"`
	TotalEmissions float64       `json:"total_emissions"`
}

type processJSON struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	EFID        string         `json:"ef_id"`
	Similarity  float64        `json:"similarity_score"`
	Parameters  parametersJSON `json:"parameters"`
}

type parametersJSON struct {
	Quantity       string  `json:"quantity"`
	EmissionFactor string  `json:"emission_factor"`
	Calculation    string  `json:"calculation"`
	TotalEmissions float64 `json:"total_emissions"`
}

// MarshalJSON renders the report in its published wire shape.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		ActivityDescription:  r.description,
		EmissionSources:      make([]sourceJSON, 0, len(r.sources)),
		TotalEmissions:       r.total,
		TotalScope1Emissions: r.scopeTotals[0],
		TotalScope2Emissions: r.scopeTotals[1],
		TotalScope3Emissions: r.scopeTotals[2],
		Assumptions:          nonNil(r.assumptions),
		DataSources:          nonNil(r.dataSources),
	}
	for _, s := range r.sources {
		sj := sourceJSON{
			Source:         s.sourceType,
			Scope:          s.scope,
			Processes:      make([]processJSON, 0, len(s.processes)),
			TotalEmissions: s.total,
		}
		for _, p := range s.processes {
			sj.Processes = append(sj.Processes, processJSON{
				Name:        p.name,
				Description: p.description,
				EFID:        p.factor.ID(),
				Similarity:  p.similarity,
				Parameters: parametersJSON{
					Quantity:       p.quantity.String(),
					EmissionFactor: strconv.FormatFloat(p.factor.Value(), 'g', -1, 64) + " " + p.factor.Unit(),
					Calculation:    p.trace,
					TotalEmissions: p.emissions,
				},
			})
		}
		out.EmissionSources = append(out.EmissionSources, sj)
	}
	return json.Marshal(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
