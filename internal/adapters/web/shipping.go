package web

import (
	"net/http"

	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ── Sales orders ─────────────────────────────────────────────────────────────

// apiListSalesOrders handles GET /api/companies/{code}/sales-orders?status=S.
func (h *Handler) apiListSalesOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListSalesOrders(r.Context(), companyCode(r), statusFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"sales_orders": orders})
}

// apiCreateSalesOrder handles POST /api/companies/{code}/sales-orders.
func (h *Handler) apiCreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID        int                `json:"customer_id"`
		HoldingLocationID int                `json:"holding_location_id"`
		Notes             string             `json:"notes"`
		Lines             []core.SOLineInput `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.CustomerID == 0 || body.HoldingLocationID == 0 || len(body.Lines) == 0 {
		writeError(w, r, "customer_id, holding_location_id and at least one line are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	so, err := h.svc.CreateSalesOrder(r.Context(), app.CreateSORequest{
		CompanyCode:       companyCode(r),
		CustomerID:        body.CustomerID,
		HoldingLocationID: body.HoldingLocationID,
		Notes:             body.Notes,
		Lines:             body.Lines,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, so)
}

// apiGetSalesOrder handles GET /api/companies/{code}/sales-orders/{id}.
func (h *Handler) apiGetSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	so, err := h.svc.GetSalesOrder(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, so)
}

// apiShipSalesOrder handles POST /api/companies/{code}/sales-orders/{id}/ship.
func (h *Handler) apiShipSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	so, err := h.svc.ShipSalesOrder(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, so)
}

// apiCancelSalesOrder handles POST /api/companies/{code}/sales-orders/{id}/cancel.
func (h *Handler) apiCancelSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	so, err := h.svc.CancelSalesOrder(r.Context(), companyCode(r), id, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, so)
}

// ── Pickings ─────────────────────────────────────────────────────────────────

// apiListPickings handles GET /api/companies/{code}/pickings?status=S.
func (h *Handler) apiListPickings(w http.ResponseWriter, r *http.Request) {
	pickings, err := h.svc.ListPickings(r.Context(), companyCode(r), statusFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"pickings": pickings})
}

// apiCreatePicking handles POST /api/companies/{code}/pickings.
func (h *Handler) apiCreatePicking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SalesOrderID int                     `json:"sales_order_id"`
		Lines        []core.PickingLineInput `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SalesOrderID == 0 || len(body.Lines) == 0 {
		writeError(w, r, "sales_order_id and at least one line are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	picking, err := h.svc.CreatePicking(r.Context(), app.CreatePickingRequest{
		CompanyCode:  companyCode(r),
		SalesOrderID: body.SalesOrderID,
		Lines:        body.Lines,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, picking)
}

// apiGetPicking handles GET /api/companies/{code}/pickings/{id}.
func (h *Handler) apiGetPicking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	picking, err := h.svc.GetPicking(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, picking)
}

// apiCancelPicking handles POST /api/companies/{code}/pickings/{id}/cancel.
func (h *Handler) apiCancelPicking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	picking, err := h.svc.CancelPicking(r.Context(), companyCode(r), id, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, picking)
}

// apiProcessPicking handles POST /api/companies/{code}/picking-details/{id}/process.
func (h *Handler) apiProcessPicking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Quantity         decimal.Decimal `json:"quantity"`
		SourceLocationID int             `json:"source_location_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SourceLocationID == 0 {
		writeError(w, r, "source_location_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	picking, err := h.svc.ProcessPicking(r.Context(), companyCode(r), id, body.Quantity, body.SourceLocationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, picking)
}

// apiAssignPickingSource handles POST /api/companies/{code}/picking-details/{id}/source.
func (h *Handler) apiAssignPickingSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		SourceLocationID int `json:"source_location_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SourceLocationID == 0 {
		writeError(w, r, "source_location_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	picking, err := h.svc.AssignPickingSource(r.Context(), companyCode(r), id, body.SourceLocationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, picking)
}
