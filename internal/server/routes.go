package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Background jobs
	mux.HandleFunc("/api/background", s.handleBackgroundCollection) // POST (create), GET (list)
	mux.HandleFunc("/api/background/", s.app.BackgroundHandler.JobHandler)

	// Quotations
	mux.HandleFunc("/api/quotations", s.app.QuotationHandler.CollectionHandler)
	mux.HandleFunc("/api/quotations/", s.handleQuotationRoutes)

	// Suppliers
	mux.HandleFunc("/api/suppliers", s.app.SupplierHandler.CollectionHandler)
	mux.HandleFunc("/api/suppliers/", s.handleSupplierRoutes)

	// Web search orchestration
	mux.HandleFunc("/api/webbusca/run", s.app.WebBuscaHandler.RunHandler)

	// Status
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	return mux
}

func (s *Server) handleBackgroundCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.app.BackgroundHandler.CreateHandler(w, r)
	case http.MethodGet:
		s.app.BackgroundHandler.ListHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleQuotationRoutes dispatches /api/quotations/{id}[/subresource].
func (s *Server) handleQuotationRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/quotations/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.Error(w, "Quotation id required", http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		s.app.QuotationHandler.ItemHandler(w, r, id)
		return
	}

	switch parts[1] {
	case "items":
		s.app.QuotationHandler.AddItemHandler(w, r, id)
	case "missing":
		s.app.QuotationHandler.AddMissingItemHandler(w, r, id)
	case "complete":
		s.app.QuotationHandler.CompleteHandler(w, r, id)
	case "budget":
		s.app.QuotationHandler.BudgetHandler(w, r, id)
	case "report":
		s.app.QuotationHandler.ReportHandler(w, r, id)
	case "pdf":
		s.app.QuotationHandler.PDFHandler(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleSupplierRoutes dispatches /api/suppliers/{id}.
func (s *Server) handleSupplierRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/suppliers/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Supplier id required", http.StatusBadRequest)
		return
	}
	s.app.SupplierHandler.ItemHandler(w, r, id)
}
