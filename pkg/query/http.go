package query

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/common/models"
	"github.com/vitaltrace-ai/platform/pkg/pipeline"
)

type HTTPHandler struct {
	orchestrator *pipeline.Orchestrator
	maxBody      int64
}

func NewHTTPHandler(orchestrator *pipeline.Orchestrator, maxBody int64) *HTTPHandler {
	return &HTTPHandler{orchestrator: orchestrator, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/query", h.handleQuery).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid query payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query text is required", http.StatusBadRequest)
		return
	}

	// Thread identity scopes session continuity; header wins over body.
	if tid := r.Header.Get("X-Thread-ID"); tid != "" {
		req.ThreadID = tid
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.New().String()
	}

	resp, err := h.orchestrator.Run(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).WithField("thread_id", req.ThreadID).Error("pipeline run aborted")
		http.Error(w, "observation retrieval failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Thread-ID", req.ThreadID)
	json.NewEncoder(w).Encode(resp)
}
