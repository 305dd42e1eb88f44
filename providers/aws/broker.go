package aws

import (
	"context"
	"fmt"
	"regexp"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/yairfalse/valpas/checks"
)

const sessionName = "valpas"

var accountIDPattern = regexp.MustCompile(`^\d{12}$`)

// CredentialError means a spoke account's credentials could not be
// acquired: a malformed account id, or a trust policy that does not let
// the hub assume the approver role. It is never transient, so callers
// skip the attachment instead of retrying.
type CredentialError struct {
	AccountID string
	Err       error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("acquire credentials for account %s: %v", e.AccountID, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Broker exchanges a spoke account id for account-scoped clients by
// assuming a fixed, well-known role in that account.
type Broker struct {
	sts      STSAPI
	ipam     IPAMAPI
	base     awssdk.Config
	roleName string
	logger   zerolog.Logger
}

// NewBroker builds a broker on top of the hub account's base config. The
// IPAM client stays on hub credentials pinned to the IPAM region; only the
// spoke EC2 calls run under the assumed role.
func NewBroker(base awssdk.Config, roleName, ipamRegion string, logger zerolog.Logger) *Broker {
	ipamCfg := base.Copy()
	ipamCfg.Region = ipamRegion
	return &Broker{
		sts:      sts.NewFromConfig(base),
		ipam:     ec2.NewFromConfig(ipamCfg),
		base:     base,
		roleName: roleName,
		logger:   logger,
	}
}

// ClientFactory mints region-scoped network clients for one spoke account.
type ClientFactory interface {
	Network(region string) checks.NetworkAPI
}

// Assume acquires temporary credentials for the spoke account. Assumption
// happens eagerly so trust-policy refusals surface here, not on the first
// check's API call.
func (b *Broker) Assume(ctx context.Context, accountID string) (ClientFactory, error) {
	if !accountIDPattern.MatchString(accountID) {
		return nil, &CredentialError{AccountID: accountID, Err: fmt.Errorf("malformed account id %q", accountID)}
	}

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, b.roleName)
	out, err := b.sts.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         awssdk.String(roleARN),
		RoleSessionName: awssdk.String(sessionName),
	})
	if err != nil {
		return nil, &CredentialError{AccountID: accountID, Err: err}
	}

	b.logger.Debug().
		Str("account_id", accountID).
		Str("role_arn", roleARN).
		Msg("assumed spoke role")

	creds := out.Credentials
	cfg := b.base.Copy()
	cfg.Credentials = awssdk.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		awssdk.ToString(creds.AccessKeyId),
		awssdk.ToString(creds.SecretAccessKey),
		awssdk.ToString(creds.SessionToken),
	))
	return &clientSet{cfg: cfg, ipam: b.ipam}, nil
}

// clientSet holds one spoke account's assumed credentials and is
// discarded after the attachment is evaluated.
type clientSet struct {
	cfg  awssdk.Config
	ipam IPAMAPI
}

func (c *clientSet) Network(region string) checks.NetworkAPI {
	cfg := c.cfg.Copy()
	cfg.Region = region
	return &networkAPI{spoke: ec2.NewFromConfig(cfg), ipam: c.ipam}
}

// networkAPI routes the VPC-local reads to the spoke client and the IPAM
// read to the hub's IPAM-region client.
type networkAPI struct {
	spoke SpokeAPI
	ipam  IPAMAPI
}

func (n *networkAPI) DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	return n.spoke.DescribeVpcs(ctx, params, optFns...)
}

func (n *networkAPI) DescribeInternetGateways(ctx context.Context, params *ec2.DescribeInternetGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	return n.spoke.DescribeInternetGateways(ctx, params, optFns...)
}

func (n *networkAPI) DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	return n.spoke.DescribeRouteTables(ctx, params, optFns...)
}

func (n *networkAPI) GetIpamResourceCidrs(ctx context.Context, params *ec2.GetIpamResourceCidrsInput, optFns ...func(*ec2.Options)) (*ec2.GetIpamResourceCidrsOutput, error) {
	return n.ipam.GetIpamResourceCidrs(ctx, params, optFns...)
}
