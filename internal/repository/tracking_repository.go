package repository

import (
	"fmt"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/model"
)

type TrackingRepositoryInterface interface {
	Load() ([]*model.TrackingEntry, error)
	Append(entries ...*model.TrackingEntry) error
}

// TrackingRepository is the flat list of generated tracking links.
type TrackingRepository struct {
	Path   string
	Logger *zap.Logger
}

func NewTrackingRepository(path string, logger *zap.Logger) *TrackingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingRepository{Path: path, Logger: logger}
}

func (r *TrackingRepository) Load() ([]*model.TrackingEntry, error) {
	entries := []*model.TrackingEntry{}
	found, err := readJSON(r.Path, &entries)
	if err != nil {
		return nil, err
	}
	if !found || entries == nil {
		return []*model.TrackingEntry{}, nil
	}
	for i, e := range entries {
		if e == nil {
			return nil, appErrors.NewStoreError("parse", r.Path, fmt.Errorf("tracking entry %d is null", i))
		}
	}
	return entries, nil
}

// Append rewrites the collection with entries added at the end.
func (r *TrackingRepository) Append(entries ...*model.TrackingEntry) error {
	if len(entries) == 0 {
		return nil
	}
	all, err := r.Load()
	if err != nil {
		return err
	}
	all = append(all, entries...)
	if err := writeJSON(r.Path, all); err != nil {
		return err
	}
	r.Logger.Debug("tracking entries appended", zap.Int("added", len(entries)), zap.Int("total", len(all)))
	return nil
}

var _ TrackingRepositoryInterface = (*TrackingRepository)(nil)
