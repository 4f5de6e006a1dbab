package web

import (
	"net/http"
	"strconv"

	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"

	"github.com/shopspring/decimal"
)

// apiListItems handles GET /api/companies/{code}/items.
func (h *Handler) apiListItems(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListItems(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateItem handles POST /api/companies/{code}/items.
func (h *Handler) apiCreateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code          string          `json:"code"`
		Name          string          `json:"name"`
		Unit          string          `json:"unit"`
		PurchasePrice decimal.Decimal `json:"purchase_price"`
		SalePrice     decimal.Decimal `json:"sale_price"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" || body.Name == "" {
		writeError(w, r, "code and name are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	item, err := h.svc.CreateItem(r.Context(), app.CreateItemRequest{
		CompanyCode:   companyCode(r),
		Code:          body.Code,
		Name:          body.Name,
		Unit:          body.Unit,
		PurchasePrice: body.PurchasePrice,
		SalePrice:     body.SalePrice,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiListLocations handles GET /api/companies/{code}/locations.
func (h *Handler) apiListLocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLocations(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateLocation handles POST /api/companies/{code}/locations.
func (h *Handler) apiCreateLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string          `json:"code"`
		Name        string          `json:"name"`
		Category    string          `json:"category"`
		MaxCapacity decimal.Decimal `json:"max_capacity"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Code == "" || body.Category == "" {
		writeError(w, r, "code and category are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	loc, err := h.svc.CreateLocation(r.Context(), app.CreateLocationRequest{
		CompanyCode: companyCode(r),
		Code:        body.Code,
		Name:        body.Name,
		Category:    core.LocationCategory(body.Category),
		MaxCapacity: body.MaxCapacity,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, loc)
}

// apiSetLocationActive handles POST /api/companies/{code}/locations/{id}/active.
func (h *Handler) apiSetLocationActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Active bool `json:"active"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := h.svc.SetLocationActive(r.Context(), companyCode(r), id, body.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]bool{"active": body.Active})
}

// apiListSuppliers handles GET /api/companies/{code}/suppliers.
func (h *Handler) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSuppliers(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateSupplier handles POST /api/companies/{code}/suppliers.
func (h *Handler) apiCreateSupplier(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePartner(w, r)
	if !ok {
		return
	}
	supplier, err := h.svc.CreateSupplier(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, supplier)
}

// apiListCustomers handles GET /api/companies/{code}/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateCustomer handles POST /api/companies/{code}/customers.
func (h *Handler) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePartner(w, r)
	if !ok {
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customer)
}

func decodePartner(w http.ResponseWriter, r *http.Request) (app.CreatePartnerRequest, bool) {
	var body struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if !decodeJSON(w, r, &body) {
		return app.CreatePartnerRequest{}, false
	}
	if body.Code == "" || body.Name == "" {
		writeError(w, r, "code and name are required", "BAD_REQUEST", http.StatusBadRequest)
		return app.CreatePartnerRequest{}, false
	}
	return app.CreatePartnerRequest{
		CompanyCode: companyCode(r),
		Code:        body.Code,
		Name:        body.Name,
		Email:       body.Email,
		Phone:       body.Phone,
		Address:     body.Address,
	}, true
}

// apiStockLevels handles GET /api/companies/{code}/stock.
func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStockLevels(r.Context(), companyCode(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiMovements handles GET /api/companies/{code}/movements?item_id=N.
func (h *Handler) apiMovements(w http.ResponseWriter, r *http.Request) {
	var itemID *int
	if raw := r.URL.Query().Get("item_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "invalid item_id: "+raw, "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		itemID = &id
	}

	result, err := h.svc.GetMovements(r.Context(), companyCode(r), itemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPickingSuggestions handles GET /api/companies/{code}/items/{id}/picking-suggestions.
func (h *Handler) apiPickingSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	suggestions, err := h.svc.SuggestPickingLocations(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"suggestions": suggestions})
}
