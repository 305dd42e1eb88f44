package checks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/valpas/types"
)

// mockNetworkAPI implements NetworkAPI for testing. The pipeline runs
// checks concurrently, so the mutable call state is guarded.
type mockNetworkAPI struct {
	mu sync.Mutex

	vpcs    []ec2types.Vpc
	vpcsErr error

	igws    []ec2types.InternetGateway
	igwsErr error

	routeTables    []ec2types.RouteTable
	routeTablesErr error

	ipamPages []*ec2.GetIpamResourceCidrsOutput
	ipamErr   error
	ipamCalls int

	lastIpamInput *ec2.GetIpamResourceCidrsInput
}

func (m *mockNetworkAPI) DescribeVpcs(_ context.Context, _ *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	if m.vpcsErr != nil {
		return nil, m.vpcsErr
	}
	return &ec2.DescribeVpcsOutput{Vpcs: m.vpcs}, nil
}

func (m *mockNetworkAPI) DescribeInternetGateways(_ context.Context, _ *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	if m.igwsErr != nil {
		return nil, m.igwsErr
	}
	return &ec2.DescribeInternetGatewaysOutput{InternetGateways: m.igws}, nil
}

func (m *mockNetworkAPI) DescribeRouteTables(_ context.Context, _ *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	if m.routeTablesErr != nil {
		return nil, m.routeTablesErr
	}
	return &ec2.DescribeRouteTablesOutput{RouteTables: m.routeTables}, nil
}

func (m *mockNetworkAPI) GetIpamResourceCidrs(_ context.Context, params *ec2.GetIpamResourceCidrsInput, _ ...func(*ec2.Options)) (*ec2.GetIpamResourceCidrsOutput, error) {
	if m.ipamErr != nil {
		return nil, m.ipamErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastIpamInput = params
	page := m.ipamPages[m.ipamCalls%len(m.ipamPages)]
	m.ipamCalls++
	return page, nil
}

func ipamPage(next *string, records ...ec2types.IpamResourceCidr) *ec2.GetIpamResourceCidrsOutput {
	return &ec2.GetIpamResourceCidrsOutput{IpamResourceCidrs: records, NextToken: next}
}

func TestDefaultVPCCheck(t *testing.T) {
	tests := []struct {
		name      string
		isDefault bool
		expected  types.Status
	}{
		{name: "default vpc fails", isDefault: true, expected: types.StatusNotCompliant},
		{name: "non-default vpc passes", isDefault: false, expected: types.StatusCompliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockNetworkAPI{vpcs: []ec2types.Vpc{{
				VpcId:     aws.String("vpc-1"),
				IsDefault: aws.Bool(tt.isDefault),
			}}}

			result, err := DefaultVPCCheck{}.Evaluate(context.Background(), api, "vpc-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, []string{"vpc-1"}, result.Resources)
		})
	}
}

func TestDefaultVPCCheckMissingVPC(t *testing.T) {
	api := &mockNetworkAPI{}
	_, err := DefaultVPCCheck{}.Evaluate(context.Background(), api, "vpc-gone")
	assert.Error(t, err)
}

func TestInternetGatewayCheck(t *testing.T) {
	t.Run("no gateway is compliant", func(t *testing.T) {
		api := &mockNetworkAPI{}
		result, err := InternetGatewayCheck{}.Evaluate(context.Background(), api, "vpc-1")
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompliant, result.Status)
		assert.Empty(t, result.Resources)
	})

	t.Run("unrouted gateway warns", func(t *testing.T) {
		api := &mockNetworkAPI{
			igws: []ec2types.InternetGateway{{InternetGatewayId: aws.String("igw-2")}},
		}
		result, err := InternetGatewayCheck{}.Evaluate(context.Background(), api, "vpc-1")
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompliantWarn, result.Status)
		assert.Equal(t, []string{"igw-2"}, result.Resources)
	})

	t.Run("routed gateway fails with the offending tables as evidence", func(t *testing.T) {
		api := &mockNetworkAPI{
			igws: []ec2types.InternetGateway{{InternetGatewayId: aws.String("igw-1")}},
			routeTables: []ec2types.RouteTable{
				{RouteTableId: aws.String("rtb-1")},
				{RouteTableId: aws.String("rtb-2")},
			},
		}
		result, err := InternetGatewayCheck{}.Evaluate(context.Background(), api, "vpc-1")
		require.NoError(t, err)
		assert.Equal(t, types.StatusNotCompliant, result.Status)
		assert.Equal(t, []string{"igw-1", "rtb-1", "rtb-2"}, result.Resources)
	})

	t.Run("route table lookup failure is an error", func(t *testing.T) {
		api := &mockNetworkAPI{
			igws:           []ec2types.InternetGateway{{InternetGatewayId: aws.String("igw-1")}},
			routeTablesErr: errors.New("throttled"),
		}
		_, err := InternetGatewayCheck{}.Evaluate(context.Background(), api, "vpc-1")
		assert.Error(t, err)
	})
}

func TestIPAMComplianceCheck(t *testing.T) {
	tests := []struct {
		name     string
		records  []ec2types.IpamResourceCidr
		expected types.Status
	}{
		{
			name:     "zero records is compliant, not an error",
			records:  nil,
			expected: types.StatusCompliant,
		},
		{
			name: "all records compliant",
			records: []ec2types.IpamResourceCidr{
				{ResourceCidr: aws.String("10.0.0.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusCompliant},
				{ResourceCidr: aws.String("10.0.1.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusCompliant},
			},
			expected: types.StatusCompliant,
		},
		{
			// The bad record comes first. A naive fold that keeps the
			// last-seen status would report COMPLIANT here.
			name: "early non-compliant record is not overwritten by later compliant ones",
			records: []ec2types.IpamResourceCidr{
				{ResourceCidr: aws.String("10.0.0.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusNoncompliant},
				{ResourceCidr: aws.String("10.0.1.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusCompliant},
				{ResourceCidr: aws.String("10.0.2.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusCompliant},
			},
			expected: types.StatusNotCompliant,
		},
		{
			name: "last record non-compliant",
			records: []ec2types.IpamResourceCidr{
				{ResourceCidr: aws.String("10.0.0.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusCompliant},
				{ResourceCidr: aws.String("10.0.1.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusNoncompliant},
			},
			expected: types.StatusNotCompliant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockNetworkAPI{ipamPages: []*ec2.GetIpamResourceCidrsOutput{ipamPage(nil, tt.records...)}}
			check := IPAMComplianceCheck{ScopeID: "ipam-scope-1"}

			result, err := check.Evaluate(context.Background(), api, "vpc-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Status)
			assert.Equal(t, "ipam-scope-1", aws.ToString(api.lastIpamInput.IpamScopeId))
		})
	}
}

func TestIPAMOverlapCheck(t *testing.T) {
	tests := []struct {
		name     string
		records  []ec2types.IpamResourceCidr
		expected types.Status
	}{
		{
			name:     "zero records is compliant",
			records:  nil,
			expected: types.StatusCompliant,
		},
		{
			name: "no overlaps",
			records: []ec2types.IpamResourceCidr{
				{ResourceCidr: aws.String("10.0.0.0/24"), OverlapStatus: ec2types.IpamOverlapStatusNonoverlapping},
			},
			expected: types.StatusCompliant,
		},
		{
			// Worst-wins regression guard, same as the compliance check.
			name: "early overlapping record is not overwritten",
			records: []ec2types.IpamResourceCidr{
				{ResourceCidr: aws.String("10.0.0.0/24"), OverlapStatus: ec2types.IpamOverlapStatusOverlapping},
				{ResourceCidr: aws.String("10.0.1.0/24"), OverlapStatus: ec2types.IpamOverlapStatusNonoverlapping},
			},
			expected: types.StatusNotCompliant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockNetworkAPI{ipamPages: []*ec2.GetIpamResourceCidrsOutput{ipamPage(nil, tt.records...)}}
			check := IPAMOverlapCheck{ScopeID: "ipam-scope-1"}

			result, err := check.Evaluate(context.Background(), api, "vpc-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Status)
		})
	}
}

func TestIPAMChecksPaginate(t *testing.T) {
	// The bad record hides on the second page.
	api := &mockNetworkAPI{ipamPages: []*ec2.GetIpamResourceCidrsOutput{
		ipamPage(aws.String("page-2"),
			ec2types.IpamResourceCidr{ResourceCidr: aws.String("10.0.0.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusCompliant},
		),
		ipamPage(nil,
			ec2types.IpamResourceCidr{ResourceCidr: aws.String("10.0.1.0/24"), ComplianceStatus: ec2types.IpamComplianceStatusNoncompliant},
		),
	}}

	result, err := IPAMComplianceCheck{ScopeID: "ipam-scope-1"}.Evaluate(context.Background(), api, "vpc-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotCompliant, result.Status)
	assert.Equal(t, 2, api.ipamCalls)
}
