package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tuneboard/tuneboard/internal/catalog"
	"github.com/tuneboard/tuneboard/internal/models"
	"github.com/tuneboard/tuneboard/internal/service"
	"github.com/tuneboard/tuneboard/internal/store"
)

// handlers holds the dependencies of all route handlers.
type handlers struct {
	lifecycle     *service.Lifecycle
	watchInterval time.Duration
	logger        *slog.Logger
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields,omitempty"`
}

// launchResponse acknowledges a submitted job.
type launchResponse struct {
	JobID  string           `json:"job_id"`
	Handle models.JobHandle `json:"handle"`
}

// jobSummary is one row of the job listing.
type jobSummary struct {
	ID        string    `json:"id"`
	Function  string    `json:"function"`
	Variant   string    `json:"variant"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	HumanURL  string    `json:"human_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) launchJob(w http.ResponseWriter, r *http.Request) {
	var req models.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	handle, err := h.lifecycle.Launch(r.Context(), req)
	if err != nil {
		var verrs service.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:  "validation failed",
				Fields: verrs,
			})
		case errors.Is(err, store.ErrDuplicateJob):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		}
		return
	}

	w.Header().Set("Location", "/api/fine-tuning/jobs/"+req.ID)
	writeJSON(w, http.StatusCreated, launchResponse{JobID: req.ID, Handle: handle})
}

func (h *handlers) jobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.lifecycle.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	writeStatus(w, http.StatusOK, status, h.logger)
}

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lifecycle.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	summaries := make([]jobSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, jobSummary{
			ID:        e.Request.ID,
			Function:  e.Request.Function,
			Variant:   e.Request.Variant,
			Model:     e.Request.Model,
			Provider:  e.Request.Provider,
			HumanURL:  e.Handle.HumanURL,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *handlers) counts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	function, metric := q.Get("function"), q.Get("metric")
	if function == "" || metric == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "function and metric are required"})
		return
	}

	counts, err := h.lifecycle.Counts(r.Context(), function, metric, q.Get("threshold"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// catalogResponse lists what the submission form can offer: functions with
// their fine-tunable variants only, and all metrics.
type catalogResponse struct {
	Functions map[string]map[string]catalog.Variant `json:"functions"`
	Metrics   map[string]catalog.Metric             `json:"metrics"`
}

func (h *handlers) catalog(w http.ResponseWriter, _ *http.Request) {
	cat := h.lifecycle.Catalog()

	resp := catalogResponse{
		Functions: make(map[string]map[string]catalog.Variant, len(cat.Functions)),
		Metrics:   cat.Metrics,
	}
	for name := range cat.Functions {
		resp.Functions[name] = cat.EligibleVariants(name)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.lifecycle.Stats())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStatus writes a JobStatus envelope.
func writeStatus(w http.ResponseWriter, code int, status models.JobStatus, logger *slog.Logger) {
	data, err := models.MarshalStatus(status)
	if err != nil {
		logger.Error("encode status", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "encode status"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
