package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/valpas/checks"
	"github.com/yairfalse/valpas/config"
	awsprov "github.com/yairfalse/valpas/providers/aws"
	"github.com/yairfalse/valpas/scanner"
)

// newScanner wires the real AWS clients into a scanner from config.
func newScanner(ctx context.Context, cfg *config.Config) (*scanner.Scanner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.HubRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	hub := awsprov.NewHub(ec2.NewFromConfig(awsCfg), cfg.HubRegion, cfg.PendingState, log.Logger)
	broker := awsprov.NewBroker(awsCfg, cfg.AssumeRole, cfg.IPAM.Region, log.Logger)
	pipeline := checks.NewPipeline(log.Logger, checks.DefaultChecks(cfg.IPAM.ScopeID)...)

	return scanner.New(hub, broker, pipeline, cfg.Scan.Workers, log.Logger), nil
}
