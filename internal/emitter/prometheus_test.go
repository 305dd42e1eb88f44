package emitter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yairfalse/valpas/scanner"
	"github.com/yairfalse/valpas/types"
)

func TestEmitDoesNotPanicWithoutMeterProvider(t *testing.T) {
	// Without a configured global meter provider OTEL falls back to
	// no-op instruments; Emit must still be safe to call.
	e, err := NewPrometheusEmitter()
	require.NoError(t, err)

	var r types.Report
	r.Add("Default VPC", types.CheckResult{Status: types.StatusCompliant})
	r.Add("Internet Gateway", types.CheckResult{Status: types.StatusCompliantWarn})

	e.Emit(context.Background(), &scanner.Result{
		Verdicts: []types.Verdict{{
			AttachmentID: "tgw-attach-1",
			Overall:      types.StatusCompliant,
			Report:       r,
		}},
		Discovered: 2,
		Skipped:    1,
		Duration:   42 * time.Millisecond,
	})
}
