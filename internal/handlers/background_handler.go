package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/jobs"
	"github.com/cotalabs/cotiza/internal/models"
)

// BackgroundHandler exposes the job manager over HTTP: create, status, list
// and cancel.
type BackgroundHandler struct {
	manager  *jobs.Manager
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewBackgroundHandler(manager *jobs.Manager, logger arbor.ILogger) *BackgroundHandler {
	return &BackgroundHandler{
		manager:  manager,
		validate: validator.New(),
		logger:   logger,
	}
}

// createJobRequest is the inbound payload of POST /api/background.
type createJobRequest struct {
	Term        string              `json:"termo" validate:"required_without=AdHocURLs"`
	ResultCount int                 `json:"quantidade_resultados" validate:"gte=0,lte=50"`
	SupplierIDs []string            `json:"fornecedores"`
	UserID      string              `json:"usuario_id"`
	Quantity    int                 `json:"quantidade" validate:"gte=0"`
	CostBenefit *models.CostBenefit `json:"custo_beneficio"`
	Rigor       int                 `json:"rigor" validate:"gte=0,lte=5"`
	Refine      bool                `json:"refinar"`
	Persist     bool                `json:"salvar"`
	AdHocURLs   []string            `json:"urls_avulsas"`
	WebWeight   float64             `json:"peso_web" validate:"gte=0,lte=1"`

	// MissingItemID binds the job's products back to a quotation missing item.
	MissingItemID string `json:"faltante_id"`
}

// CreateHandler creates a job and returns its id and status URL immediately.
// POST /api/background
func (h *BackgroundHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.manager.Create(models.JobParams{
		Term:          req.Term,
		ResultCount:   req.ResultCount,
		SupplierIDs:   req.SupplierIDs,
		UserID:        req.UserID,
		Quantity:      req.Quantity,
		CostBenefit:   req.CostBenefit,
		Rigor:         req.Rigor,
		Refine:        req.Refine,
		Persist:       req.Persist,
		AdHocURLs:     req.AdHocURLs,
		WebWeight:     req.WebWeight,
		MissingItemID: req.MissingItemID,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"status_url": "/api/background/" + job.ID,
	})
}

// ListHandler returns jobs, most recent first.
// GET /api/background?limit=50
func (h *BackgroundHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.manager.List(limit),
	})
}

// JobHandler dispatches GET (status) and DELETE (cancel) on a single job.
// /api/background/{id}
func (h *BackgroundHandler) JobHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/background/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := h.manager.GetStatus(id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := h.manager.Cancel(id); err != nil {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "job_id": id})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
