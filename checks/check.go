// Package checks implements the compliance checks valpas runs against a
// spoke VPC before its transit gateway attachment can be approved.
package checks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yairfalse/valpas/types"
)

// NetworkAPI is the slice of the EC2 surface the checks read. The first
// three calls go to the spoke account in the attachment's region; the IPAM
// call goes to the hub account in the IPAM region.
type NetworkAPI interface {
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeInternetGateways(ctx context.Context, params *ec2.DescribeInternetGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error)
	DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error)
	GetIpamResourceCidrs(ctx context.Context, params *ec2.GetIpamResourceCidrsInput, optFns ...func(*ec2.Options)) (*ec2.GetIpamResourceCidrsOutput, error)
}

// Check evaluates one compliance rule against one VPC. Implementations
// never mutate the target and treat "no evidence found" as a defined
// status, not an error.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, api NetworkAPI, vpcID string) (types.CheckResult, error)
}

// DefaultChecks returns the standard pipeline order. New checks (e.g. a
// required-tags rule) register here once they have a defined contract.
func DefaultChecks(ipamScopeID string) []Check {
	return []Check{
		DefaultVPCCheck{},
		InternetGatewayCheck{},
		IPAMComplianceCheck{ScopeID: ipamScopeID},
		IPAMOverlapCheck{ScopeID: ipamScopeID},
	}
}
