package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/model"
)

const legacyStore = `[{"name": "Spring24", "date": "2024-03-01T12:34:56.789012",
 "results": [{"name": "Ana", "phone": 5551234567, "result": "Not Sent", "tracking_id": null},
             {"name": "Bo", "phone": "5559876543", "result": "Error sending to Bo: exit status 1", "tracking_id": null}],
 "tracking_info": {}, "message_text": "Vote on [Name] day!", "image_data": "aGVsbG8=", "base_url": "https://t.example/r"}]`

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	repo := NewCampaignRepository(filepath.Join(t.TempDir(), "campaigns.json"), nil)

	campaigns, err := repo.Load()
	require.NoError(t, err)
	assert.NotNil(t, campaigns)
	assert.Empty(t, campaigns)
}

func TestLoad_CorruptFileFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaigns.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Spring24", `), 0644))

	_, err := NewCampaignRepository(path, nil).Load()

	var se *appErrors.StoreError
	require.True(t, errors.As(err, &se), "expected StoreError, got %v", err)
	assert.Equal(t, "parse", se.Op)
	assert.Equal(t, path, se.Path)
}

func TestLoad_NullEntriesFailLoudly(t *testing.T) {
	tests := []struct {
		name  string
		store string
		want  string
	}{
		{"null campaign", `[null]`, "campaign 0 is null"},
		{"null recipient", `[{"name": "A", "results": [null], "tracking_info": {}}]`, "recipient 0 is null"},
		{"null tracking record", `[{"name": "A", "results": [], "tracking_info": {"x": null}}]`, `tracking record "x" is null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "campaigns.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.store), 0644))

			campaigns, err := NewCampaignRepository(path, nil).Load()

			var se *appErrors.StoreError
			require.True(t, errors.As(err, &se), "expected StoreError, got %v", err)
			assert.Equal(t, "parse", se.Op)
			assert.ErrorContains(t, err, tt.want)
			assert.Nil(t, campaigns)
		})
	}
}

func TestLoad_LegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaigns.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyStore), 0644))

	campaigns, err := NewCampaignRepository(path, nil).Load()
	require.NoError(t, err)
	require.Len(t, campaigns, 1)

	c := campaigns[0]
	assert.Equal(t, []byte("hello"), c.Image)
	assert.Equal(t, "5551234567", c.Recipients[0].Phone)
	assert.Equal(t, model.StatusNotSent, c.Recipients[0].Status)
	assert.Equal(t, model.StatusFailed, c.Recipients[1].Status)
}

func TestSaveLoad_RoundTripIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaigns.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyStore), 0644))
	repo := NewCampaignRepository(path, nil)

	first, err := repo.Load()
	require.NoError(t, err)
	require.NoError(t, repo.Save(first))
	second, err := repo.Load()
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("round trip changed the collection (-first +second):\n%s", diff)
	}

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(second))
	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(written), string(rewritten))
}

func TestSave_OverwritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "campaigns.json")
	repo := NewCampaignRepository(path, nil)
	id := "t-1"

	require.NoError(t, repo.Save([]*model.Campaign{
		{Name: "A", CreatedAt: model.NewTimestamp(time.Now())},
		{Name: "B", CreatedAt: model.NewTimestamp(time.Now()), Recipients: []*model.Recipient{
			{Name: "Ana", Phone: "1", Status: model.StatusSent, Channel: "SMS", TrackingID: &id},
		}},
	}))
	require.NoError(t, repo.Save([]*model.Campaign{{Name: "B", CreatedAt: model.NewTimestamp(time.Now())}}))

	campaigns, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "B", campaigns[0].Name)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSave_NilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaigns.json")
	require.NoError(t, NewCampaignRepository(path, nil).Save(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFindByName_FirstMatchWins(t *testing.T) {
	a1 := &model.Campaign{Name: "A", BaseURL: "one"}
	a2 := &model.Campaign{Name: "A", BaseURL: "two"}

	c, i := FindByName([]*model.Campaign{{Name: "B"}, a1, a2}, "A")
	assert.Same(t, a1, c)
	assert.Equal(t, 1, i)

	c, i = FindByName(nil, "A")
	assert.Nil(t, c)
	assert.Equal(t, -1, i)
}

func TestTrackingRepository_Append(t *testing.T) {
	repo := NewTrackingRepository(filepath.Join(t.TempDir(), "tracking_info.json"), nil)

	require.NoError(t, repo.Append())
	require.NoError(t, repo.Append(&model.TrackingEntry{ID: "1", Campaign: "A"}))
	require.NoError(t, repo.Append(&model.TrackingEntry{ID: "2", Campaign: "A"}))

	entries, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[1].ID)
}

func TestTrackingRepository_NullEntryFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking_info.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "1"}, null]`), 0644))

	_, err := NewTrackingRepository(path, nil).Load()

	var se *appErrors.StoreError
	require.True(t, errors.As(err, &se), "expected StoreError, got %v", err)
	assert.Equal(t, "parse", se.Op)
}

func TestAcquireLock_SecondHolderFails(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	_, err = AcquireLock(dir)
	var se *appErrors.StoreError
	require.True(t, errors.As(err, &se), "expected StoreError, got %v", err)

	require.NoError(t, lock.Release())
	again, err := AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
