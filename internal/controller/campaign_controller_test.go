package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaigner/internal/channel"
	"github.com/unclebandit/campaigner/internal/controller"
	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/handler"
	"github.com/unclebandit/campaigner/internal/importer"
	"github.com/unclebandit/campaigner/internal/repository"
	"github.com/unclebandit/campaigner/internal/server"
	"github.com/unclebandit/campaigner/internal/service"
)

// --- Fake channel ---

type stubChannel struct {
	err error
}

func (s *stubChannel) Send(ctx context.Context, msg channel.Message) (channel.Delivery, error) {
	if s.err != nil {
		return channel.Delivery{}, s.err
	}
	return channel.Delivery{Channel: "SMS", Status: "Text message sent to " + msg.Name + " via SMS"}, nil
}

// replyingStub also reads replies.
type replyingStub struct {
	stubChannel
	reply channel.Reply
	err   error
}

func (s *replyingStub) LatestResponse(ctx context.Context, phone string) (channel.Reply, error) {
	return s.reply, s.err
}

func newServer(t *testing.T, ch channel.Channel) http.Handler {
	t.Helper()
	dir := t.TempDir()
	svc := &service.CampaignService{
		CampaignRepo: repository.NewCampaignRepository(filepath.Join(dir, "campaigns.json"), nil),
		TrackingRepo: repository.NewTrackingRepository(filepath.Join(dir, "tracking_info.json"), nil),
		Channel:      ch,
	}
	ctrl := &controller.CampaignController{CampaignService: svc, Importer: importer.New(nil, nil)}
	return server.NewRouter(ctrl, handler.NewCampaignHandler(svc, nil), nil)
}

const header = "Phone\tName\tAge\tSex\tParty Last Primary\tPrecinct Name\tZip Code\n"

func createBody(name string, rows ...map[string]string) []byte {
	if rows == nil {
		rows = []map[string]string{{
			"Phone": "5551234567", "Name": "Ana", "Age": "30", "Sex": "F",
			"Party Last Primary": "DEM", "Precinct Name": "North 3", "Zip Code": "97201",
		}}
	}
	b, _ := json.Marshal(map[string]interface{}{
		"name":     name,
		"message":  "Vote on [Name] day!",
		"base_url": "https://t.example/r",
		"rows":     rows,
	})
	return b
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

// --- Tests ---

func TestCampaignLifecycle(t *testing.T) {
	h := newServer(t, &stubChannel{})

	w, out := do(t, h, http.MethodPost, "/campaigns", createBody("Spring24"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(1), out["recipients"])

	w, out = do(t, h, http.MethodGet, "/campaigns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["data"], 1)
	assert.Equal(t, float64(1), out["pagination"].(map[string]interface{})["total_count"])

	w, out = do(t, h, http.MethodPost, "/campaigns/Spring24/recipients/0/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sent", out["recipient"].(map[string]interface{})["status"])

	w, _ = do(t, h, http.MethodPost, "/campaigns/Spring24/recipients/0/send", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, out = do(t, h, http.MethodGet, "/campaigns/Spring24/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["sent_count"])
	assert.Equal(t, float64(1), out["not_clicked_count"])

	w, out = do(t, h, http.MethodGet, "/campaigns/Spring24", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Vote on [Name] day!", out["message_text"])

	w, out = do(t, h, http.MethodDelete, "/campaigns/Spring24", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["deleted"])

	w, _ = do(t, h, http.MethodGet, "/campaigns/Spring24", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPersonalizedPreviewHandler(t *testing.T) {
	h := newServer(t, &stubChannel{})
	w, _ := do(t, h, http.MethodPost, "/campaigns", createBody("Spring 24"))
	require.Equal(t, http.StatusCreated, w.Code)

	body, _ := json.Marshal(map[string]interface{}{"recipient_name": "Ana"})
	w, out := do(t, h, http.MethodPost, "/campaigns/Spring%2024/personalized-preview", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Hello Ana,\n\nVote on Ana day!\n[Tracking Link]", out["rendered_message"])

	w, out = do(t, h, http.MethodPost, "/campaigns/Spring%2024/personalized-preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello [Name],\n\nVote on [Name] day!\n[Tracking Link]", out["rendered_message"])
}

func TestCreateCampaign_Validation(t *testing.T) {
	h := newServer(t, &stubChannel{})

	missing := map[string]string{"Phone": "1", "Name": "Ana"}
	w, out := do(t, h, http.MethodPost, "/campaigns", createBody("Spring24", missing))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "Zip Code")

	w, _ = do(t, h, http.MethodPost, "/campaigns", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = do(t, h, http.MethodGet, "/campaigns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, out["data"])
}

func TestCreateCampaign_Multipart(t *testing.T) {
	h := newServer(t, &stubChannel{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Fall24"))
	require.NoError(t, mw.WriteField("message", "Hi [Name]"))
	require.NoError(t, mw.WriteField("base_url", "https://t.example/r"))
	fw, err := mw.CreateFormFile("recipients", "list.txt")
	require.NoError(t, err)
	fmt.Fprint(fw, header+"5551234567\tAna\t30\tF\tDEM\tNorth 3\t97201\n5559876543\tBo\t41\tM\tREP\tSouth 1\t97202\n")
	iw, err := mw.CreateFormFile("image", "flyer.png")
	require.NoError(t, err)
	iw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/campaigns", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, float64(2), out["recipients"])
	assert.Equal(t, true, out["has_image"])
}

func TestSendToRecipient_Errors(t *testing.T) {
	h := newServer(t, &stubChannel{err: errors.New("exit status 1")})
	w, _ := do(t, h, http.MethodPost, "/campaigns", createBody("Spring24"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = do(t, h, http.MethodPost, "/campaigns/Spring24/recipients/x/send", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/campaigns/Spring24/recipients/5/send", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/campaigns/Nope/recipients/0/send", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// a channel failure is an outcome, not a request error
	w, out := do(t, h, http.MethodPost, "/campaigns/Spring24/recipients/0/send", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Error sending to Ana: exit status 1", out["result"])
}

func TestGetRecipientResponse(t *testing.T) {
	h := newServer(t, &replyingStub{reply: channel.Reply{Text: "See you there", ReceivedAt: "Friday, March 1, 2024 at 9:30:00 AM"}})
	w, _ := do(t, h, http.MethodPost, "/campaigns", createBody("Spring24"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, out := do(t, h, http.MethodGet, "/campaigns/Spring24/recipients/0/response", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ana", out["name"])
	assert.Equal(t, "See you there", out["response"])
	assert.Equal(t, "Friday, March 1, 2024 at 9:30:00 AM", out["received_at"])

	w, _ = do(t, h, http.MethodGet, "/campaigns/Spring24/recipients/x/response", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, h, http.MethodGet, "/campaigns/Nope/recipients/0/response", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecipientResponse_ErrorsAreDetails(t *testing.T) {
	h := newServer(t, &replyingStub{err: errors.New("no chat")})
	w, _ := do(t, h, http.MethodPost, "/campaigns", createBody("Spring24"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, out := do(t, h, http.MethodGet, "/campaigns/Spring24/recipients/0/response", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Error getting response: no chat", out["response"])
	assert.NotContains(t, out, "received_at")

	h = newServer(t, &stubChannel{})
	w, _ = do(t, h, http.MethodPost, "/campaigns", createBody("Spring24"))
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = do(t, h, http.MethodGet, "/campaigns/Spring24/recipients/0/response", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.NewValidationError("name", "is required"), http.StatusBadRequest},
		{&appErrors.ImportError{Err: errors.New("bad bytes")}, http.StatusBadRequest},
		{appErrors.NewCampaignNotFound("x"), http.StatusNotFound},
		{appErrors.ErrSendInProgress, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", appErrors.ErrRecipientNotPending), http.StatusConflict},
		{appErrors.ErrResponsesUnsupported, http.StatusNotImplemented},
		{appErrors.NewStoreError("parse", "campaigns.json", errors.New("eof")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, controller.StatusFor(tt.err), tt.err.Error())
	}
}
