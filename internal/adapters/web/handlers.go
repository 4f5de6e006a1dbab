package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"warehouse-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc app.ApplicationService
	log *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log *zap.Logger, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// ── Master data ──────────────────────────────────────────────────────────
	r.Get("/api/companies/{code}/items", h.apiListItems)
	r.Post("/api/companies/{code}/items", h.apiCreateItem)
	r.Get("/api/companies/{code}/locations", h.apiListLocations)
	r.Post("/api/companies/{code}/locations", h.apiCreateLocation)
	r.Post("/api/companies/{code}/locations/{id}/active", h.apiSetLocationActive)
	r.Get("/api/companies/{code}/suppliers", h.apiListSuppliers)
	r.Post("/api/companies/{code}/suppliers", h.apiCreateSupplier)
	r.Get("/api/companies/{code}/customers", h.apiListCustomers)
	r.Post("/api/companies/{code}/customers", h.apiCreateCustomer)

	// ── Inventory ────────────────────────────────────────────────────────────
	r.Get("/api/companies/{code}/stock", h.apiStockLevels)
	r.Get("/api/companies/{code}/movements", h.apiMovements)
	r.Get("/api/companies/{code}/items/{id}/picking-suggestions", h.apiPickingSuggestions)

	// ── Receiving: purchase orders and shipping notices ──────────────────────
	r.Get("/api/companies/{code}/purchase-orders", h.apiListPurchaseOrders)
	r.Post("/api/companies/{code}/purchase-orders", h.apiCreatePurchaseOrder)
	r.Get("/api/companies/{code}/purchase-orders/{id}", h.apiGetPurchaseOrder)
	r.Post("/api/companies/{code}/purchase-orders/{id}/send", h.apiSendPurchaseOrder)
	r.Post("/api/companies/{code}/purchase-orders/{id}/cancel", h.apiCancelPurchaseOrder)

	r.Get("/api/companies/{code}/asns", h.apiListASNs)
	r.Post("/api/companies/{code}/asns", h.apiCreateASN)
	r.Get("/api/companies/{code}/asns/{id}", h.apiGetASN)
	r.Post("/api/companies/{code}/asns/{id}/status", h.apiUpdateASNStatus)
	r.Post("/api/companies/{code}/asns/{id}/cancel", h.apiCancelASN)
	r.Post("/api/companies/{code}/asn-details/{id}/putaway", h.apiProcessPutaway)

	// ── Shipping: sales orders and pickings ──────────────────────────────────
	r.Get("/api/companies/{code}/sales-orders", h.apiListSalesOrders)
	r.Post("/api/companies/{code}/sales-orders", h.apiCreateSalesOrder)
	r.Get("/api/companies/{code}/sales-orders/{id}", h.apiGetSalesOrder)
	r.Post("/api/companies/{code}/sales-orders/{id}/ship", h.apiShipSalesOrder)
	r.Post("/api/companies/{code}/sales-orders/{id}/cancel", h.apiCancelSalesOrder)

	r.Get("/api/companies/{code}/pickings", h.apiListPickings)
	r.Post("/api/companies/{code}/pickings", h.apiCreatePicking)
	r.Get("/api/companies/{code}/pickings/{id}", h.apiGetPicking)
	r.Post("/api/companies/{code}/pickings/{id}/cancel", h.apiCancelPicking)
	r.Post("/api/companies/{code}/picking-details/{id}/process", h.apiProcessPicking)
	r.Post("/api/companies/{code}/picking-details/{id}/source", h.apiAssignPickingSource)

	return r
}

// health returns service status and the loaded company code.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.LoadDefaultCompany(r.Context())
	companyCode := ""
	if err == nil && company != nil {
		companyCode = company.CompanyCode
	}

	type response struct {
		Status  string `json:"status"`
		Company string `json:"company"`
	}

	writeJSON(w, response{Status: "ok", Company: companyCode})
}

// companyCode extracts the {code} URL parameter.
func companyCode(r *http.Request) string {
	return chi.URLParam(r, "code")
}

// pathID extracts the {id} URL parameter as an int. Writes a 400 response and
// returns false when the parameter is not a number.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid id: "+chi.URLParam(r, "id"), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFilter returns the optional ?status= query parameter.
func statusFilter(r *http.Request) *string {
	if s := r.URL.Query().Get("status"); s != "" {
		return &s
	}
	return nil
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
