package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/controller"
	"github.com/unclebandit/campaigner/internal/handler"
)

func NewRouter(ctrl *controller.CampaignController, h *handler.CampaignHandler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Post("/campaigns", ctrl.CreateCampaign)
	r.Get("/campaigns", ctrl.ListCampaigns)
	r.Get("/campaigns/{name}", h.GetCampaignHandlerWithStats)
	r.Delete("/campaigns/{name}", ctrl.DeleteCampaign)
	r.Get("/campaigns/{name}/stats", h.GetCampaignStatsHandler)
	r.Post("/campaigns/{name}/personalized-preview", ctrl.PersonalizedPreview)
	r.Post("/campaigns/{name}/recipients/{index}/send", ctrl.SendToRecipient)
	r.Get("/campaigns/{name}/recipients/{index}/response", h.GetRecipientResponseHandler)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
