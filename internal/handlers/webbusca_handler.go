package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
	"github.com/cotalabs/cotiza/internal/services/webbusca"
)

// WebBuscaHandler runs the full fan-out / wait / reconcile cycle for a
// quotation's missing items in one request.
type WebBuscaHandler struct {
	service  *webbusca.Service
	storage  interfaces.StorageManager
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewWebBuscaHandler(service *webbusca.Service, storage interfaces.StorageManager, logger arbor.ILogger) *WebBuscaHandler {
	return &WebBuscaHandler{
		service:  service,
		storage:  storage,
		validate: validator.New(),
		logger:   logger,
	}
}

type runRequest struct {
	QuotationID    string `json:"cotacao_id" validate:"required"`
	FallbackTerm   string `json:"termo_padrao"`
	ApplyWeighting bool   `json:"aplicar_peso_web"`
	MaxWaitMs      int    `json:"max_wait_ms" validate:"gte=0"`
	PollIntervalMs int    `json:"poll_interval_ms" validate:"gte=0"`
}

// RunHandler handles POST /api/webbusca/run. The request blocks until every
// fanned-out job is terminal or timed out, then reconciles the results into
// the quotation.
func (h *WebBuscaHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	stored, err := h.storage.MissingItems().ListMissingItems(ctx, req.QuotationID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if len(stored) == 0 {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"cotacao_id": req.QuotationID,
			"inseridos":  0,
			"mensagem":   "nenhum item faltante",
		})
		return
	}

	items := make([]models.MissingItem, len(stored))
	for i, item := range stored {
		items[i] = *item
	}

	handles := h.service.CreateJobsForMissingItems(ctx, items, req.FallbackTerm, req.ApplyWeighting)
	outcome := h.service.WaitForJobs(ctx, handles,
		time.Duration(req.MaxWaitMs)*time.Millisecond,
		time.Duration(req.PollIntervalMs)*time.Millisecond)

	inserted, err := h.service.InsertResultsIntoQuotation(ctx, req.QuotationID, outcome.FullResults)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cotacao_id": req.QuotationID,
		"jobs":       handles,
		"produtos":   outcome.AcceptedProducts,
		"inseridos":  inserted,
	})
}
