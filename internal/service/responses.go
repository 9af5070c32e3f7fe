// internal/service/responses.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/channel"
	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/repository"
)

// RecipientResponse is the latest reply from one recipient. When the reply
// cannot be read, Response carries the error and ReceivedAt is empty.
type RecipientResponse struct {
	Campaign   string `json:"campaign"`
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Response   string `json:"response"`
	ReceivedAt string `json:"received_at,omitempty"`
}

// LatestResponse reads the most recent message from the recipient at index.
// Channel errors are reported in the result, not returned.
func (s *CampaignService) LatestResponse(ctx context.Context, campaignName string, index int) (*RecipientResponse, error) {
	s.init()

	reader, ok := s.Channel.(channel.ResponseReader)
	if !ok {
		return nil, appErrors.ErrResponsesUnsupported
	}

	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return nil, err
	}
	c, _ := repository.FindByName(campaigns, campaignName)
	if c == nil {
		return nil, appErrors.NewCampaignNotFound(campaignName)
	}
	if index < 0 || index >= len(c.Recipients) {
		return nil, appErrors.NewValidationError("index", fmt.Sprintf("%d is out of range (campaign has %d recipients)", index, len(c.Recipients)))
	}
	r := c.Recipients[index]

	resp := &RecipientResponse{Campaign: c.Name, Index: index, Name: r.Name, Phone: r.Phone}
	reply, err := reader.LatestResponse(ctx, r.Phone)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.Logger.Warn("response not read",
			zap.String("campaign", c.Name),
			zap.String("phone", r.Phone),
			zap.Error(err))
		resp.Response = "Error getting response: " + err.Error()
		return resp, nil
	}

	resp.Response = reply.Text
	resp.ReceivedAt = reply.ReceivedAt
	return resp, nil
}
