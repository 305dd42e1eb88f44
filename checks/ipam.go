package checks

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/valpas/types"
)

// The IPAM checks delegate the actual rule evaluation to AWS IPAM and
// read back the verdicts it already computed for the VPC's allocations.
// A VPC can hold several CIDR allocations; one bad record fails the
// check no matter how many good ones follow (worst-of-all-records wins).
// Zero records means the VPC is not managed by IPAM, which is a pass:
// an un-evaluated allocation cannot be flagged non-compliant.

// IPAMComplianceCheck reads the pool-rule compliance status of every CIDR
// allocated to the VPC in the given scope.
type IPAMComplianceCheck struct {
	ScopeID string
}

// Name implements Check.
func (IPAMComplianceCheck) Name() string { return "IPAM Compliance" }

// Evaluate implements Check.
func (c IPAMComplianceCheck) Evaluate(ctx context.Context, api NetworkAPI, vpcID string) (types.CheckResult, error) {
	records, err := listResourceCidrs(ctx, api, c.ScopeID, vpcID)
	if err != nil {
		return types.CheckResult{}, err
	}
	if len(records) == 0 {
		return notManaged(vpcID), nil
	}

	for _, r := range records {
		if r.ComplianceStatus != ec2types.IpamComplianceStatusCompliant {
			return types.CheckResult{
				Status:    types.StatusNotCompliant,
				Resources: []string{vpcID, c.ScopeID},
				Comment:   fmt.Sprintf("allocation %s is %s in IPAM, check reason with the network team", aws.ToString(r.ResourceCidr), r.ComplianceStatus),
			}, nil
		}
	}
	return types.CheckResult{
		Status:    types.StatusCompliant,
		Resources: []string{vpcID},
		Comment:   "all allocations are compliant in IPAM",
	}, nil
}

// IPAMOverlapCheck reads the overlap status of every CIDR allocated to the
// VPC: an overlapping range collides with another IPAM-managed VPC.
type IPAMOverlapCheck struct {
	ScopeID string
}

// Name implements Check.
func (IPAMOverlapCheck) Name() string { return "IPAM Overlap" }

// Evaluate implements Check.
func (c IPAMOverlapCheck) Evaluate(ctx context.Context, api NetworkAPI, vpcID string) (types.CheckResult, error) {
	records, err := listResourceCidrs(ctx, api, c.ScopeID, vpcID)
	if err != nil {
		return types.CheckResult{}, err
	}
	if len(records) == 0 {
		return notManaged(vpcID), nil
	}

	for _, r := range records {
		if r.OverlapStatus == ec2types.IpamOverlapStatusOverlapping {
			return types.CheckResult{
				Status:    types.StatusNotCompliant,
				Resources: []string{vpcID, c.ScopeID},
				Comment:   fmt.Sprintf("allocation %s overlaps with another managed VPC", aws.ToString(r.ResourceCidr)),
			}, nil
		}
	}
	return types.CheckResult{
		Status:    types.StatusCompliant,
		Resources: []string{vpcID},
		Comment:   "no allocation overlaps with another managed VPC",
	}, nil
}

func listResourceCidrs(ctx context.Context, api NetworkAPI, scopeID, vpcID string) ([]ec2types.IpamResourceCidr, error) {
	var (
		records   []ec2types.IpamResourceCidr
		nextToken *string
	)
	for {
		out, err := api.GetIpamResourceCidrs(ctx, &ec2.GetIpamResourceCidrsInput{
			IpamScopeId: aws.String(scopeID),
			ResourceId:  aws.String(vpcID),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("get ipam resource cidrs for %s: %w", vpcID, err)
		}
		records = append(records, out.IpamResourceCidrs...)
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return records, nil
}

func notManaged(vpcID string) types.CheckResult {
	return types.CheckResult{
		Status:    types.StatusCompliant,
		Resources: []string{vpcID},
		Comment:   vpcID + " is not managed by IPAM",
	}
}
