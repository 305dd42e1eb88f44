package checks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yairfalse/valpas/types"
)

// Pipeline runs a fixed, ordered set of checks against one VPC. It never
// returns an error and never drops an entry: a check that fails or panics
// shows up in the report as a synthetic NOT_COMPLIANT result, so an
// unevaluatable rule fails closed instead of vanishing from the report.
type Pipeline struct {
	checks []Check
	logger zerolog.Logger
}

// NewPipeline builds a pipeline over the given checks in order.
func NewPipeline(logger zerolog.Logger, checks ...Check) *Pipeline {
	return &Pipeline{checks: checks, logger: logger}
}

// Run evaluates every check against the VPC. Checks are read-only and
// independent, so they run concurrently; the report keeps registration
// order regardless of completion order.
func (p *Pipeline) Run(ctx context.Context, api NetworkAPI, vpcID string) types.Report {
	results := make([]types.CheckResult, len(p.checks))

	var wg sync.WaitGroup
	for i, c := range p.checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			results[i] = p.evaluate(ctx, c, api, vpcID)
		}(i, c)
	}
	wg.Wait()

	var report types.Report
	for i, c := range p.checks {
		report.Add(c.Name(), results[i])
	}
	return report
}

func (p *Pipeline) evaluate(ctx context.Context, c Check, api NetworkAPI, vpcID string) (result types.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("check", c.Name()).
				Str("vpc_id", vpcID).
				Interface("panic", r).
				Msg("check panicked")
			result = failedResult(fmt.Errorf("panic: %v", r))
		}
	}()

	result, err := c.Evaluate(ctx, api, vpcID)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("check", c.Name()).
			Str("vpc_id", vpcID).
			Msg("check failed")
		return failedResult(err)
	}
	return result
}

func failedResult(err error) types.CheckResult {
	return types.CheckResult{
		Status:  types.StatusNotCompliant,
		Comment: fmt.Sprintf("check failed: %v", err),
	}
}
