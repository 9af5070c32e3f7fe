// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/unclebandit/campaigner/internal/channel"
	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/model"
	"github.com/unclebandit/campaigner/internal/queue"
	"github.com/unclebandit/campaigner/internal/repository"
	"github.com/unclebandit/campaigner/internal/tracking"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	TrackingRepo repository.TrackingRepositoryInterface
	Channel      channel.Channel
	Queue        queue.Queue
	Logger       *zap.Logger
	Now          func() time.Time

	initOnce sync.Once
	sendSem  *semaphore.Weighted
	// storeMu is held around every load-modify-save of the campaign store.
	storeMu sync.Mutex
}

type CreateCampaignInput struct {
	Name            string
	Rows            []map[string]string
	MessageTemplate string
	Image           []byte
	BaseURL         string
}

type CampaignSummary struct {
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	Recipients int       `json:"recipients"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	NotSent    int       `json:"not_sent"`
}

type CampaignDetails struct {
	Name            string             `json:"name"`
	CreatedAt       time.Time          `json:"created_at"`
	MessageTemplate string             `json:"message_text"`
	Preview         string             `json:"preview"`
	HasImage        bool               `json:"has_image"`
	BaseURL         string             `json:"base_url"`
	Recipients      []*model.Recipient `json:"recipients"`
	Stats           Statistics         `json:"stats"`
}

func (s *CampaignService) init() {
	s.initOnce.Do(func() {
		s.sendSem = semaphore.NewWeighted(1)
		if s.Logger == nil {
			s.Logger = zap.NewNop()
		}
		if s.Now == nil {
			s.Now = time.Now
		}
	})
}

// CreateCampaign validates the input and appends a campaign whose recipients
// are all NotSent. Nothing is written when validation fails.
func (s *CampaignService) CreateCampaign(in CreateCampaignInput) (*model.Campaign, error) {
	s.init()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, appErrors.NewValidationError("name", "is required")
	}
	if strings.TrimSpace(in.MessageTemplate) == "" {
		return nil, appErrors.NewValidationError("message_template", "is required")
	}
	baseURL := strings.TrimSpace(in.BaseURL)
	if baseURL == "" {
		return nil, appErrors.NewValidationError("base_url", "is required")
	}
	if u, err := url.Parse(baseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, appErrors.NewValidationError("base_url", "must be an absolute http(s) URL")
	}

	recipients, err := buildRecipients(in.Rows)
	if err != nil {
		return nil, err
	}

	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return nil, err
	}
	if existing, _ := repository.FindByName(campaigns, name); existing != nil {
		s.Logger.Warn("duplicate campaign name, lookups will resolve to the earlier one",
			zap.String("campaign", name))
	}

	var image []byte
	if len(in.Image) > 0 {
		image = in.Image
	}
	c := &model.Campaign{
		Name:            name,
		CreatedAt:       model.NewTimestamp(s.Now()),
		MessageTemplate: in.MessageTemplate,
		Image:           image,
		BaseURL:         baseURL,
		Recipients:      recipients,
		Tracking:        map[string]*model.TrackingRecord{},
	}

	if err := s.CampaignRepo.Save(append(campaigns, c)); err != nil {
		return nil, err
	}

	s.Logger.Info("campaign created",
		zap.String("campaign", name),
		zap.Int("recipients", len(recipients)),
		zap.Bool("image", image != nil))
	return c, nil
}

func buildRecipients(rows []map[string]string) ([]*model.Recipient, error) {
	if len(rows) == 0 {
		return nil, appErrors.NewValidationError("recipients", "list is empty")
	}

	recipients := make([]*model.Recipient, 0, len(rows))
	for i, row := range rows {
		var missing []string
		for _, col := range model.RequiredColumns {
			if _, ok := row[col]; !ok {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return nil, appErrors.NewMissingColumns(missing)
		}
		phone := strings.TrimSpace(row[model.ColumnPhone])
		if phone == "" {
			return nil, appErrors.NewValidationError("recipients", fmt.Sprintf("row %d has no phone number", i+1))
		}

		attrs := make(map[string]string, len(row))
		for k, v := range row {
			if k == model.ColumnName || k == model.ColumnPhone {
				continue
			}
			attrs[k] = v
		}
		recipients = append(recipients, &model.Recipient{
			Name:       strings.TrimSpace(row[model.ColumnName]),
			Phone:      phone,
			Attributes: attrs,
			Status:     model.StatusNotSent,
		})
	}
	return recipients, nil
}

// SendToRecipient sends the campaign message to the recipient at index and
// persists the outcome. Channel failures become a Failed status, not an error.
// An interrupted send records nothing and leaves the recipient NotSent.
// Only one send may run at a time.
func (s *CampaignService) SendToRecipient(ctx context.Context, campaignName string, index int) (*model.Recipient, error) {
	s.init()

	if !s.sendSem.TryAcquire(1) {
		return nil, appErrors.ErrSendInProgress
	}
	defer s.sendSem.Release(1)

	s.storeMu.Lock()
	c, r, err := s.pendingRecipient(campaignName, index)
	s.storeMu.Unlock()
	if err != nil {
		return r, err
	}

	link, trackingID := tracking.Generate(c.BaseURL, r.Phone)
	log := s.Logger.With(
		zap.String("campaign", c.Name),
		zap.Int("index", index),
		zap.String("phone", r.Phone),
		zap.String("tracking_id", trackingID))

	delivery, sendErr := s.Channel.Send(ctx, channel.Message{
		Phone:        r.Phone,
		Name:         r.Name,
		Body:         Personalize(c.MessageTemplate, r.Name),
		TrackingLink: link,
		Image:        c.Image,
	})
	if sendErr != nil && interrupted(ctx, sendErr) {
		log.Warn("send interrupted, recipient left pending", zap.Error(sendErr))
		cause := ctx.Err()
		if cause == nil {
			cause = sendErr
		}
		return nil, fmt.Errorf("send to %s (%s) interrupted: %w", r.Name, r.Phone, cause)
	}

	s.storeMu.Lock()
	r, err = s.recordOutcome(campaignName, index, r.Phone, trackingID, delivery, sendErr)
	s.storeMu.Unlock()
	if err != nil {
		log.Error("send outcome not recorded", zap.Error(err))
		return r, err
	}
	if sendErr != nil {
		log.Warn("send failed", zap.Error(sendErr))
	} else {
		log.Info("send succeeded", zap.String("channel", delivery.Channel))
	}

	now := s.Now()
	if s.TrackingRepo != nil {
		err := s.TrackingRepo.Append(&model.TrackingEntry{
			ID:        trackingID,
			Campaign:  c.Name,
			Name:      r.Name,
			Phone:     r.Phone,
			URL:       link,
			CreatedAt: now,
		})
		if err != nil {
			log.Error("tracking entry not recorded", zap.Error(err))
		}
	}

	if s.Queue != nil {
		err := s.Queue.Publish(queue.TopicRecipientOutcomes, model.OutcomeEvent{
			Campaign:    c.Name,
			Index:       index,
			Name:        r.Name,
			Phone:       r.Phone,
			Status:      r.Status,
			Channel:     r.Channel,
			Detail:      r.Detail,
			TrackingID:  trackingID,
			TrackingURL: link,
			At:          now,
		})
		if err != nil {
			log.Warn("outcome event not published", zap.Error(err))
		}
	}

	return r, nil
}

// pendingRecipient loads the store and returns the recipient at index, which
// must still be NotSent. Callers hold storeMu.
func (s *CampaignService) pendingRecipient(campaignName string, index int) (*model.Campaign, *model.Recipient, error) {
	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return nil, nil, err
	}
	c, _ := repository.FindByName(campaigns, campaignName)
	if c == nil {
		return nil, nil, appErrors.NewCampaignNotFound(campaignName)
	}
	if index < 0 || index >= len(c.Recipients) {
		return nil, nil, appErrors.NewValidationError("index", fmt.Sprintf("%d is out of range (campaign has %d recipients)", index, len(c.Recipients)))
	}

	r := c.Recipients[index]
	if r.Status.Terminal() {
		return c, r, fmt.Errorf("%s (%s) is %s: %w", r.Name, r.Phone, r.Status, appErrors.ErrRecipientNotPending)
	}
	return c, r, nil
}

// recordOutcome reloads the store and applies one send result to the
// recipient at index, leaving every other campaign as it is on disk.
// Callers hold storeMu.
func (s *CampaignService) recordOutcome(campaignName string, index int, phone, trackingID string, delivery channel.Delivery, sendErr error) (*model.Recipient, error) {
	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return nil, err
	}
	c, _ := repository.FindByName(campaigns, campaignName)
	if c == nil {
		return nil, fmt.Errorf("campaign removed while sending: %w", appErrors.NewCampaignNotFound(campaignName))
	}
	if index >= len(c.Recipients) || c.Recipients[index].Phone != phone {
		return nil, appErrors.NewValidationError("index", fmt.Sprintf("recipient %d changed while sending", index))
	}

	r := c.Recipients[index]
	if r.Status.Terminal() {
		return r, fmt.Errorf("%s (%s) is %s: %w", r.Name, r.Phone, r.Status, appErrors.ErrRecipientNotPending)
	}
	if sendErr != nil {
		var ce *appErrors.ChannelError
		if !errors.As(sendErr, &ce) {
			s.Logger.Warn("channel returned an untyped error", zap.Error(sendErr))
		}
		r.MarkFailed(fmt.Sprintf("Error sending to %s: %v", r.Name, sendErr), trackingID)
	} else {
		r.MarkSent(delivery.Channel, delivery.Status, trackingID)
	}

	if c.Tracking == nil {
		c.Tracking = map[string]*model.TrackingRecord{}
	}
	c.Tracking[trackingID] = &model.TrackingRecord{Name: r.Name, Phone: r.Phone}

	if err := s.CampaignRepo.Save(campaigns); err != nil {
		return r, err
	}
	return r, nil
}

// interrupted reports whether a send failed because ctx ended rather than
// because the channel refused the message.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// DeleteCampaign removes the first campaign called name. It reports false and
// leaves the store untouched when there is none.
func (s *CampaignService) DeleteCampaign(name string) (bool, error) {
	s.init()

	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return false, err
	}
	_, i := repository.FindByName(campaigns, name)
	if i < 0 {
		return false, nil
	}

	campaigns = append(campaigns[:i], campaigns[i+1:]...)
	if err := s.CampaignRepo.Save(campaigns); err != nil {
		return false, err
	}
	s.Logger.Info("campaign deleted", zap.String("campaign", name))
	return true, nil
}

func (s *CampaignService) GetCampaign(name string) (*model.Campaign, error) {
	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return nil, err
	}
	c, _ := repository.FindByName(campaigns, name)
	if c == nil {
		return nil, appErrors.NewCampaignNotFound(name)
	}
	return c, nil
}

// ListCampaigns pages through campaigns, newest first
func (s *CampaignService) ListCampaigns(page, pageSize int) ([]CampaignSummary, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	campaigns, err := s.CampaignRepo.Load()
	if err != nil {
		return nil, nil, err
	}

	ordered := make([]*model.Campaign, len(campaigns))
	copy(ordered, campaigns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt.Time)
	})

	total := len(ordered)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	summaries := make([]CampaignSummary, 0, end-start)
	for _, c := range ordered[start:end] {
		st := ComputeStatistics(c)
		summaries = append(summaries, CampaignSummary{
			Name:       c.Name,
			CreatedAt:  c.CreatedAt.Time,
			Recipients: len(c.Recipients),
			Sent:       st.Sent,
			Failed:     st.Failed,
			NotSent:    st.NotSent,
		})
	}

	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
	return summaries, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(name string) (*CampaignDetails, error) {
	c, err := s.GetCampaign(name)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{
		Name:            c.Name,
		CreatedAt:       c.CreatedAt.Time,
		MessageTemplate: c.MessageTemplate,
		Preview:         PreviewText(c.MessageTemplate),
		HasImage:        len(c.Image) > 0,
		BaseURL:         c.BaseURL,
		Recipients:      c.Recipients,
		Stats:           ComputeStatistics(c),
	}, nil
}

// RenderPreview shows the text a recipient would get. With no recipientName
// the placeholders are left in place.
func (s *CampaignService) RenderPreview(campaignName, recipientName string, overrideTemplate *string) (string, error) {
	c, err := s.GetCampaign(campaignName)
	if err != nil {
		return "", err
	}

	template := c.MessageTemplate
	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		template = *overrideTemplate
	}

	if recipientName == "" {
		return PreviewText(template), nil
	}
	return previewFor(recipientName, Personalize(template, recipientName)), nil
}
