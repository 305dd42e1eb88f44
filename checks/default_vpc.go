package checks

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yairfalse/valpas/types"
)

// DefaultVPCCheck flags the account's implicit default VPC. Default VPCs
// are unmanaged and loosely secured, so they never get a hub attachment.
type DefaultVPCCheck struct{}

// Name implements Check.
func (DefaultVPCCheck) Name() string { return "Default VPC" }

// Evaluate implements Check.
func (DefaultVPCCheck) Evaluate(ctx context.Context, api NetworkAPI, vpcID string) (types.CheckResult, error) {
	out, err := api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{vpcID}})
	if err != nil {
		return types.CheckResult{}, fmt.Errorf("describe vpc %s: %w", vpcID, err)
	}
	if len(out.Vpcs) == 0 {
		return types.CheckResult{}, fmt.Errorf("vpc %s not found", vpcID)
	}

	if aws.ToBool(out.Vpcs[0].IsDefault) {
		return types.CheckResult{
			Status:    types.StatusNotCompliant,
			Resources: []string{vpcID},
			Comment:   vpcID + " is the default VPC",
		}, nil
	}
	return types.CheckResult{
		Status:    types.StatusCompliant,
		Resources: []string{vpcID},
		Comment:   vpcID + " is not the default VPC",
	}, nil
}
