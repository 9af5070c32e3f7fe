// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/importer"
	"github.com/unclebandit/campaigner/internal/service"
)

const maxUploadMemory = 32 << 20

type CampaignController struct {
	CampaignService *service.CampaignService
	Importer        *importer.Importer
	Logger          *zap.Logger
}

func (c *CampaignController) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	name := CampaignName(r)

	var body struct {
		RecipientName    string  `json:"recipient_name"`
		OverrideTemplate *string `json:"override_template"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, c.logger(), appErrors.NewValidationError("body", "is not valid JSON"))
			return
		}
	}

	rendered, err := c.CampaignService.RenderPreview(name, body.RecipientName, body.OverrideTemplate)
	if err != nil {
		WriteError(w, c.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rendered_message": rendered,
		"used_template":    body.OverrideTemplate,
		"recipient_name":   body.RecipientName,
	})
}

// CreateCampaign accepts either a multipart upload (recipients file plus an
// optional image) or a JSON body with rows already split into columns.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var (
		in  service.CreateCampaignInput
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = c.multipartInput(r)
	} else {
		in, err = jsonInput(r)
	}
	if err != nil {
		WriteError(w, c.logger(), err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(in)
	if err != nil {
		WriteError(w, c.logger(), err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"name":       campaign.Name,
		"created_at": campaign.CreatedAt.Time,
		"recipients": len(campaign.Recipients),
		"has_image":  len(campaign.Image) > 0,
	})
}

func (c *CampaignController) multipartInput(r *http.Request) (service.CreateCampaignInput, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return service.CreateCampaignInput{}, appErrors.NewValidationError("body", "is not a valid multipart form")
	}
	in := service.CreateCampaignInput{
		Name:            r.FormValue("name"),
		MessageTemplate: r.FormValue("message"),
		BaseURL:         r.FormValue("base_url"),
	}

	recipients, err := formFile(r, "recipients")
	if err != nil {
		return in, err
	}
	if recipients == nil {
		return in, appErrors.NewValidationError("recipients", "file is required")
	}
	imp := c.Importer
	if imp == nil {
		imp = importer.New(nil, c.logger())
	}
	table, err := imp.Import(recipients)
	if err != nil {
		return in, err
	}
	in.Rows = table.Rows

	in.Image, err = formFile(r, "image")
	return in, err
}

func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, appErrors.NewValidationError(field, "could not be read")
	}
	defer f.Close()
	return io.ReadAll(f)
}

func jsonInput(r *http.Request) (service.CreateCampaignInput, error) {
	var body struct {
		Name    string              `json:"name"`
		Message string              `json:"message"`
		BaseURL string              `json:"base_url"`
		Rows    []map[string]string `json:"rows"`
		Image   []byte              `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return service.CreateCampaignInput{}, appErrors.NewValidationError("body", "is not valid JSON")
	}
	return service.CreateCampaignInput{
		Name:            body.Name,
		Rows:            body.Rows,
		MessageTemplate: body.Message,
		Image:           body.Image,
		BaseURL:         body.BaseURL,
	}, nil
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize)
	if err != nil {
		WriteError(w, c.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	name := CampaignName(r)

	deleted, err := c.CampaignService.DeleteCampaign(name)
	if err != nil {
		WriteError(w, c.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":    name,
		"deleted": deleted,
	})
}

func (c *CampaignController) SendToRecipient(w http.ResponseWriter, r *http.Request) {
	name := CampaignName(r)
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(w, c.logger(), appErrors.NewValidationError("index", "must be an integer"))
		return
	}

	recipient, err := c.CampaignService.SendToRecipient(r.Context(), name, index)
	if err != nil {
		WriteError(w, c.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"campaign":  name,
		"index":     index,
		"recipient": recipient,
		"result":    recipient.Result(),
	})
}

// CampaignName returns the {name} route parameter, unescaped.
func CampaignName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case appErrors.IsValidation(err):
		return http.StatusBadRequest
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case appErrors.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, appErrors.ErrResponsesUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
