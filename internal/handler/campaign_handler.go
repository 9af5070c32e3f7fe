// internal/handler/campaign_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/controller"
	appErrors "github.com/unclebandit/campaigner/internal/errors"
	"github.com/unclebandit/campaigner/internal/service"
)

// CampaignHandler serves the read-only campaign views
type CampaignHandler struct {
	Service *service.CampaignService
	Logger  *zap.Logger
}

func NewCampaignHandler(svc *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignHandler{Service: svc, Logger: logger}
}

// GetCampaignHandlerWithStats returns a campaign, its recipients and its statistics.
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	name := controller.CampaignName(r)

	details, err := h.Service.GetCampaignDetailsWithStats(name)
	if err != nil {
		controller.WriteError(w, h.Logger, err)
		return
	}

	h.Logger.Debug("campaign details served",
		zap.String("campaign", name),
		zap.Int("recipients", details.Stats.Total))
	controller.WriteJSON(w, http.StatusOK, details)
}

func (h *CampaignHandler) GetCampaignStatsHandler(w http.ResponseWriter, r *http.Request) {
	name := controller.CampaignName(r)

	stats, err := h.Service.CampaignStats(name)
	if err != nil {
		controller.WriteError(w, h.Logger, err)
		return
	}

	controller.WriteJSON(w, http.StatusOK, stats)
}

// GetRecipientResponseHandler returns the latest reply from one recipient.
func (h *CampaignHandler) GetRecipientResponseHandler(w http.ResponseWriter, r *http.Request) {
	name := controller.CampaignName(r)
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		controller.WriteError(w, h.Logger, appErrors.NewValidationError("index", "must be an integer"))
		return
	}

	resp, err := h.Service.LatestResponse(r.Context(), name, index)
	if err != nil {
		controller.WriteError(w, h.Logger, err)
		return
	}

	controller.WriteJSON(w, http.StatusOK, resp)
}
