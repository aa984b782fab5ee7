package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"postforge/internal/adapters"
	"postforge/internal/enhance"
	"postforge/internal/logging"
	"postforge/internal/services"
	"postforge/internal/workflow"
)

const maxRequestBody = 4 << 20

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Stage  string `json:"stage,omitempty"`
}

type processRequest struct {
	MaxItems  int    `json:"max_items"`
	Selection string `json:"selection"`
}

type healthResponse struct {
	Status    string                `json:"status"`
	Running   bool                  `json:"running"`
	Adapters  []adapters.Health     `json:"adapters"`
	LastRun   *workflow.BatchResult `json:"last_run"`
	LastError string                `json:"last_error,omitempty"`
}

type stageRequest struct {
	Keyword  string `json:"keyword"`
	SEOTitle string `json:"seo_title"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx, done, ok := s.daemon.beginBatch(r.Context())
	if !ok {
		s.writeError(w, http.StatusServiceUnavailable, "daemon is shutting down")
		return
	}
	defer done()
	result, err := s.daemon.workflow.RunBatch(ctx, workflow.RunOptions{
		MaxItems:  req.MaxItems,
		Selection: req.Selection,
	})
	if err != nil {
		status := statusForError(err)
		logging.WithContext(r.Context(), s.logger).Warn("batch run refused",
			logging.Int("status", status),
			logging.String(logging.FieldReason, services.Reason(err)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "batch_refused"),
		)
		s.writeJSON(w, status, errorResponse{Error: err.Error(), Reason: reasonForError(err)})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	probe := r.URL.Query().Get("probe") != ""
	summary := s.daemon.workflow.Status(r.Context(), probe)
	resp := healthResponse{
		Status:    "ok",
		Running:   summary.Running,
		Adapters:  summary.Adapters,
		LastRun:   summary.LastResult,
		LastError: summary.LastError,
	}
	for _, health := range summary.Adapters {
		if !health.Ready {
			resp.Status = "degraded"
			break
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context(), false))
}

func (s *apiServer) handleDebugStage(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stage")
	var req stageRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		s.writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	out, err := s.daemon.workflow.Engine().RunStage(r.Context(), stage, enhance.Input{
		Title:    req.Title,
		Content:  req.Content,
		Keyword:  req.Keyword,
		SEOTitle: req.SEOTitle,
	})
	if err != nil {
		failed, _ := enhance.FailedStage(err)
		s.writeJSON(w, statusForError(err), errorResponse{
			Error:  err.Error(),
			Reason: reasonForError(err),
			Stage:  failed,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrBatchInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrAdapterConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrEnhancementFormat),
		errors.Is(err, services.ErrEnhancementValidation),
		errors.Is(err, services.ErrEnhancementTruncated),
		errors.Is(err, services.ErrExternalTool):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func reasonForError(err error) string {
	if errors.Is(err, workflow.ErrBatchInProgress) {
		return "BatchInProgress"
	}
	return services.Reason(err)
}
