package repository

import (
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/model"
)

type CampaignRepositoryInterface interface {
	// Load returns every campaign in file order. A missing file is an empty store.
	Load() ([]*model.Campaign, error)
	// Save replaces the whole collection.
	Save(campaigns []*model.Campaign) error
}

// CampaignRepository keeps the campaign collection in one JSON file.
type CampaignRepository struct {
	Path   string
	Logger *zap.Logger
}

func NewCampaignRepository(path string, logger *zap.Logger) *CampaignRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignRepository{Path: path, Logger: logger}
}

func (r *CampaignRepository) Load() ([]*model.Campaign, error) {
	campaigns := []*model.Campaign{}
	found, err := readJSON(r.Path, &campaigns)
	if err != nil {
		r.Logger.Error("campaign store unreadable", zap.String("path", r.Path), zap.Error(err))
		return nil, err
	}
	if !found || campaigns == nil {
		r.Logger.Debug("no campaign store yet", zap.String("path", r.Path))
		return []*model.Campaign{}, nil
	}
	if err := checkNulls(campaigns); err != nil {
		r.Logger.Error("campaign store has null entries", zap.String("path", r.Path), zap.Error(err))
		return nil, appErrors.NewStoreError("parse", r.Path, err)
	}
	return campaigns, nil
}

// checkNulls rejects null campaigns, recipients and tracking records, which
// decode to nil pointers.
func checkNulls(campaigns []*model.Campaign) error {
	for i, c := range campaigns {
		if c == nil {
			return fmt.Errorf("campaign %d is null", i)
		}
		for j, r := range c.Recipients {
			if r == nil {
				return fmt.Errorf("campaign %q: recipient %d is null", c.Name, j)
			}
		}
		for id, t := range c.Tracking {
			if t == nil {
				return fmt.Errorf("campaign %q: tracking record %q is null", c.Name, id)
			}
		}
	}
	return nil
}

func (r *CampaignRepository) Save(campaigns []*model.Campaign) error {
	if campaigns == nil {
		campaigns = []*model.Campaign{}
	}
	if err := writeJSON(r.Path, campaigns); err != nil {
		r.Logger.Error("campaign store write failed", zap.String("path", r.Path), zap.Error(err))
		return err
	}
	r.Logger.Debug("campaign store saved", zap.String("path", r.Path), zap.Int("campaigns", len(campaigns)))
	return nil
}

// FindByName returns the first campaign with the given name and its position.
func FindByName(campaigns []*model.Campaign, name string) (*model.Campaign, int) {
	for i, c := range campaigns {
		if c.Name == name {
			return c, i
		}
	}
	return nil, -1
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
