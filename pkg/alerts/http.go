package alerts

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vitaltrace-ai/platform/pkg/common/logger"
)

type HTTPHandler struct {
	repo *Repository
}

type listResponse struct {
	Summary Summary      `json:"summary"`
	Items   []FlagRecord `json:"items"`
}

func NewHTTPHandler(repo *Repository) *HTTPHandler {
	return &HTTPHandler{repo: repo}
}

func (h *HTTPHandler) Register(r *mux.Router) {
	r.HandleFunc("/alerts", h.handleList).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repo.Summarize(r.Context(), 7*24*time.Hour)
	if err != nil {
		logger.Log.WithError(err).Error("failed to summarize flag events")
		http.Error(w, "failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	items, err := h.repo.Latest(r.Context(), 25)
	if err != nil {
		logger.Log.WithError(err).Error("failed to load flag events")
		http.Error(w, "failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listResponse{Summary: summary, Items: items})
}
