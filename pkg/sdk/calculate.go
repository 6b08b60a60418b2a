package carbonfactors

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/carbonfactors/internal/usecase/normalize"
)

// Calculate returns one report per activity, in input order.
// An activity whose components match no factor still gets a report, with
// the gaps listed in its assumptions. Invalid activities and embedding
// failures fail the whole call.
func (c *Client) Calculate(ctx context.Context, activities ...Activity) (reports []Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opCalculate, start, len(reports), err) }()

	e, err := c.engines.Current()
	if err != nil {
		return nil, err
	}

	inputs := make([]normalize.Input, len(activities))
	for i, a := range activities {
		inputs[i] = activityToInput(a)
	}
	out, err := e.Calculate.CalculateBatch(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("calculate: %w", err)
	}

	reports = make([]Report, len(out))
	for i := range out {
		reports[i] = reportFromDomain(&out[i])
	}
	return reports, nil
}
