package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/valpas/types"
)

// InternetGatewayCheck looks for a public egress path. No IGW is a clean
// pass. An IGW with routes pointing at it means public subnets and fails
// the check. An attached but unrouted IGW only warns: some architectures
// (Global Accelerator to private targets, for one) attach a gateway
// without ever routing through it.
type InternetGatewayCheck struct{}

// Name implements Check.
func (InternetGatewayCheck) Name() string { return "Internet Gateway" }

// Evaluate implements Check.
func (InternetGatewayCheck) Evaluate(ctx context.Context, api NetworkAPI, vpcID string) (types.CheckResult, error) {
	igws, err := api.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("attachment.vpc-id"), Values: []string{vpcID}},
		},
	})
	if err != nil {
		return types.CheckResult{}, fmt.Errorf("describe internet gateways for %s: %w", vpcID, err)
	}
	if len(igws.InternetGateways) == 0 {
		return types.CheckResult{
			Status:  types.StatusCompliant,
			Comment: "no internet gateway attached",
		}, nil
	}

	igwID := aws.ToString(igws.InternetGateways[0].InternetGatewayId)
	routed, err := api.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("route.gateway-id"), Values: []string{igwID}},
		},
	})
	if err != nil {
		return types.CheckResult{}, fmt.Errorf("describe route tables for %s: %w", igwID, err)
	}

	var tables []string
	for _, rt := range routed.RouteTables {
		tables = append(tables, aws.ToString(rt.RouteTableId))
	}
	if len(tables) > 0 {
		return types.CheckResult{
			Status:    types.StatusNotCompliant,
			Resources: append([]string{igwID}, tables...),
			Comment:   fmt.Sprintf("routes to %s found in route tables: %s", igwID, strings.Join(tables, ", ")),
		}, nil
	}
	return types.CheckResult{
		Status:    types.StatusCompliantWarn,
		Resources: []string{igwID},
		Comment:   igwID + " is attached but no route tables point to it",
	}, nil
}
