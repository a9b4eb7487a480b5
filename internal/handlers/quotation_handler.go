package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/models"
	"github.com/cotalabs/cotiza/internal/services/pdfrender"
	"github.com/cotalabs/cotiza/internal/services/quotation"
	"github.com/cotalabs/cotiza/internal/services/webbusca"
)

// QuotationHandler exposes quotation assembly over HTTP.
type QuotationHandler struct {
	quotations *quotation.Service
	webbusca   *webbusca.Service
	pdf        *pdfrender.Renderer
	validate   *validator.Validate
	logger     arbor.ILogger
}

func NewQuotationHandler(quotations *quotation.Service, webbuscaService *webbusca.Service, pdf *pdfrender.Renderer, logger arbor.ILogger) *QuotationHandler {
	return &QuotationHandler{
		quotations: quotations,
		webbusca:   webbuscaService,
		pdf:        pdf,
		validate:   validator.New(),
		logger:     logger,
	}
}

type createQuotationRequest struct {
	Name   string `json:"nome" validate:"required"`
	UserID string `json:"usuario_id"`
}

// CollectionHandler handles GET (list) and POST (create) on /api/quotations.
func (h *QuotationHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		quotations, err := h.quotations.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"cotacoes": quotations})
	case http.MethodPost:
		var req createQuotationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, err := h.quotations.Create(r.Context(), req.Name, req.UserID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler handles GET (detail) and DELETE on /api/quotations/{id}.
func (h *QuotationHandler) ItemHandler(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		detail, err := h.quotations.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, detail)
	case http.MethodDelete:
		if err := h.quotations.Delete(r.Context(), id); err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type addItemRequest struct {
	Name      string  `json:"nome" validate:"required"`
	ProductID string  `json:"produto_id"`
	Price     float64 `json:"preco" validate:"gte=0"`
	Currency  string  `json:"moeda"`
	Provider  string  `json:"fornecedor"`
	Quantity  int     `json:"quantidade" validate:"gte=0"`
}

// AddItemHandler handles POST /api/quotations/{id}/items.
func (h *QuotationHandler) AddItemHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.quotations.AddItem(r.Context(), id, &models.QuotationItem{
		Name:      req.Name,
		ProductID: req.ProductID,
		Price:     req.Price,
		Currency:  req.Currency,
		Provider:  req.Provider,
		Quantity:  req.Quantity,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, item)
}

type addMissingItemRequest struct {
	Name           string              `json:"nome" validate:"required"`
	SuggestedQuery string              `json:"consulta_sugerida"`
	Category       string              `json:"categoria"`
	Quantity       int                 `json:"quantidade" validate:"gte=0"`
	CostBenefit    *models.CostBenefit `json:"custo_beneficio"`
	Rigor          *int                `json:"rigor"`
}

// AddMissingItemHandler handles POST /api/quotations/{id}/missing.
func (h *QuotationHandler) AddMissingItemHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req addMissingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.quotations.AddMissingItem(r.Context(), id, &models.MissingItem{
		Name:           req.Name,
		SuggestedQuery: req.SuggestedQuery,
		Category:       req.Category,
		Quantity:       req.Quantity,
		CostBenefit:    req.CostBenefit,
		Rigor:          req.Rigor,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, item)
}

// CompleteHandler handles POST /api/quotations/{id}/complete.
func (h *QuotationHandler) CompleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	updated, err := h.quotations.MarkComplete(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

// BudgetHandler handles POST /api/quotations/{id}/budget (recalculation).
func (h *QuotationHandler) BudgetHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	total, err := h.webbusca.RecalculateBudget(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "total": total})
}

// ReportHandler handles GET /api/quotations/{id}/report, returning the web
// analysis rendered as HTML.
func (h *QuotationHandler) ReportHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	html, err := h.quotations.ReportHTML(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if html == "" {
		WriteError(w, http.StatusNotFound, "no report for quotation")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// PDFHandler handles GET /api/quotations/{id}/pdf.
func (h *QuotationHandler) PDFHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	detail, err := h.quotations.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	document, err := h.pdf.Render(detail.Quotation, detail.Items)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", id))
	w.Write(document)
}
