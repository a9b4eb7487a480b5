package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// SupplierHandler manages the registered supplier sites.
type SupplierHandler struct {
	suppliers interfaces.SupplierStorage
	validate  *validator.Validate
	logger    arbor.ILogger
}

func NewSupplierHandler(suppliers interfaces.SupplierStorage, logger arbor.ILogger) *SupplierHandler {
	return &SupplierHandler{
		suppliers: suppliers,
		validate:  validator.New(),
		logger:    logger,
	}
}

type supplierRequest struct {
	Name        string                   `json:"nome" validate:"required"`
	URLPattern  string                   `json:"url_pattern" validate:"required,contains=*"`
	MarketScale string                   `json:"escala_mercado" validate:"omitempty,oneof=nacional internacional"`
	RenderJS    bool                     `json:"render_js"`
	Selectors   models.SupplierSelectors `json:"seletores"`
	Active      *bool                    `json:"ativo"`
}

// CollectionHandler handles GET (list) and POST (register) on /api/suppliers.
func (h *SupplierHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		suppliers, err := h.suppliers.ListSuppliers(r.Context(), activeOnly)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"fornecedores": suppliers})
	case http.MethodPost:
		var req supplierRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		supplier := &models.Supplier{
			ID:          common.NewSupplierID(),
			Name:        req.Name,
			URLPattern:  req.URLPattern,
			MarketScale: models.MarketScale(req.MarketScale),
			RenderJS:    req.RenderJS,
			Selectors:   req.Selectors,
			Active:      true,
			CreatedAt:   time.Now(),
		}
		if supplier.MarketScale == "" {
			supplier.MarketScale = models.MarketScaleNational
		}
		if req.Active != nil {
			supplier.Active = *req.Active
		}
		if err := h.suppliers.SaveSupplier(r.Context(), supplier); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, supplier)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler handles GET, PUT and DELETE on /api/suppliers/{id}.
func (h *SupplierHandler) ItemHandler(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		supplier, err := h.suppliers.GetSupplier(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, supplier)
	case http.MethodPut:
		supplier, err := h.suppliers.GetSupplier(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		var req supplierRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		supplier.Name = req.Name
		supplier.URLPattern = req.URLPattern
		if req.MarketScale != "" {
			supplier.MarketScale = models.MarketScale(req.MarketScale)
		}
		supplier.RenderJS = req.RenderJS
		supplier.Selectors = req.Selectors
		if req.Active != nil {
			supplier.Active = *req.Active
		}
		if err := h.suppliers.SaveSupplier(r.Context(), supplier); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, supplier)
	case http.MethodDelete:
		if err := h.suppliers.DeleteSupplier(r.Context(), id); err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
