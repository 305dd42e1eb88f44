// Package scanner drives one compliance pass over the hub's pending
// transit gateway attachments.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/valpas/checks"
	awsprov "github.com/yairfalse/valpas/providers/aws"
	"github.com/yairfalse/valpas/types"
)

const defaultWorkers = 4

// Hub lists the pending attachment requests to evaluate.
type Hub interface {
	PendingAttachments(ctx context.Context) ([]types.Attachment, error)
}

// Broker acquires spoke-account-scoped clients.
type Broker interface {
	Assume(ctx context.Context, accountID string) (awsprov.ClientFactory, error)
}

// Pipeline produces the per-VPC compliance report.
type Pipeline interface {
	Run(ctx context.Context, api checks.NetworkAPI, vpcID string) types.Report
}

// Result summarizes one scan pass.
type Result struct {
	Verdicts   []types.Verdict
	Discovered int
	Skipped    int
	Duration   time.Duration
}

// Scanner evaluates every pending attachment: assume the spoke role, run
// the check pipeline, reduce to a verdict. Attachments are independent, so
// they are evaluated by a bounded worker pool; verdicts keep discovery
// order.
type Scanner struct {
	hub      Hub
	broker   Broker
	pipeline Pipeline
	workers  int
	logger   zerolog.Logger
}

// New builds a scanner. workers <= 0 falls back to the default pool size.
func New(hub Hub, broker Broker, pipeline Pipeline, workers int, logger zerolog.Logger) *Scanner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Scanner{hub: hub, broker: broker, pipeline: pipeline, workers: workers, logger: logger}
}

// Scan runs one pass. Discovery failure is fatal; a credential failure
// skips that attachment (logged, counted in Result.Skipped, no verdict)
// and the pass continues. Each invocation re-queries current pending
// state, nothing is carried over between passes.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	attachments, err := s.hub.PendingAttachments(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover pending attachments: %w", err)
	}

	slots := make([]*types.Verdict, len(attachments))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i, a := range attachments {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, a types.Attachment) {
			defer wg.Done()
			defer func() { <-sem }()
			if v, ok := s.evaluate(ctx, a); ok {
				slots[i] = &v
			}
		}(i, a)
	}
	wg.Wait()

	verdicts := make([]types.Verdict, 0, len(attachments))
	for _, v := range slots {
		if v != nil {
			verdicts = append(verdicts, *v)
		}
	}

	result := &Result{
		Verdicts:   verdicts,
		Discovered: len(attachments),
		Skipped:    len(attachments) - len(verdicts),
		Duration:   time.Since(start),
	}
	s.logger.Info().
		Int("discovered", result.Discovered).
		Int("verdicts", len(result.Verdicts)).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("scan complete")
	return result, nil
}

func (s *Scanner) evaluate(ctx context.Context, a types.Attachment) (types.Verdict, bool) {
	log := s.logger.With().
		Str("attachment_id", a.ID).
		Str("vpc_id", a.VpcID).
		Str("account_id", a.OwnerAccountID).
		Logger()
	log.Info().Msg("evaluating attachment")

	clients, err := s.broker.Assume(ctx, a.OwnerAccountID)
	if err != nil {
		var credErr *awsprov.CredentialError
		if errors.As(err, &credErr) {
			log.Warn().Err(err).Msg("skipping attachment, spoke credentials unavailable")
		} else {
			log.Error().Err(err).Msg("skipping attachment, broker failure")
		}
		return types.Verdict{}, false
	}

	report := s.pipeline.Run(ctx, clients.Network(a.Region), a.VpcID)
	overall := types.Reduce(report)
	log.Info().Str("overall", string(overall)).Msg("attachment evaluated")

	return types.Verdict{
		AttachmentID: a.ID,
		AccountID:    a.OwnerAccountID,
		VpcID:        a.VpcID,
		Region:       a.Region,
		Overall:      overall,
		Report:       report,
	}, true
}
