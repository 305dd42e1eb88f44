package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"

	"github.com/yairfalse/valpas/types"
)

// Hub lists the transit gateway VPC attachments waiting for acceptance in
// the hub account.
type Hub struct {
	client       TGWAPI
	region       string
	pendingState string
	logger       zerolog.Logger
}

// NewHub builds a hub inventory over the given EC2 client. pendingState is
// the attachment state to filter on, normally "pendingAcceptance".
func NewHub(client TGWAPI, region, pendingState string, logger zerolog.Logger) *Hub {
	return &Hub{client: client, region: region, pendingState: pendingState, logger: logger}
}

// PendingAttachments pages through the hub's attachment inventory and
// returns every attachment in the pending state. A page failure aborts the
// whole listing: without discovery there is nothing to decide on.
func (h *Hub) PendingAttachments(ctx context.Context) ([]types.Attachment, error) {
	var (
		attachments []types.Attachment
		nextToken   *string
	)
	for {
		out, err := h.client.DescribeTransitGatewayVpcAttachments(ctx, &ec2.DescribeTransitGatewayVpcAttachmentsInput{
			Filters: []ec2types.Filter{
				{Name: awssdk.String("state"), Values: []string{h.pendingState}},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("describe transit gateway vpc attachments: %w", err)
		}

		for _, a := range out.TransitGatewayVpcAttachments {
			attachments = append(attachments, types.Attachment{
				ID:             awssdk.ToString(a.TransitGatewayAttachmentId),
				OwnerAccountID: awssdk.ToString(a.VpcOwnerId),
				VpcID:          awssdk.ToString(a.VpcId),
				Region:         h.region,
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	h.logger.Debug().
		Int("attachments", len(attachments)).
		Str("state", h.pendingState).
		Msg("listed pending attachments")
	return attachments, nil
}
