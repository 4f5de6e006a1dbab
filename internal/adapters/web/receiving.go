package web

import (
	"net/http"

	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ── Purchase orders ──────────────────────────────────────────────────────────

// apiListPurchaseOrders handles GET /api/companies/{code}/purchase-orders?status=S.
func (h *Handler) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListPurchaseOrders(r.Context(), companyCode(r), statusFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"purchase_orders": orders})
}

// apiCreatePurchaseOrder handles POST /api/companies/{code}/purchase-orders.
func (h *Handler) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SupplierID int                `json:"supplier_id"`
		Notes      string             `json:"notes"`
		Lines      []core.POLineInput `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SupplierID == 0 || len(body.Lines) == 0 {
		writeError(w, r, "supplier_id and at least one line are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	po, err := h.svc.CreatePurchaseOrder(r.Context(), app.CreatePORequest{
		CompanyCode: companyCode(r),
		SupplierID:  body.SupplierID,
		Notes:       body.Notes,
		Lines:       body.Lines,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiGetPurchaseOrder handles GET /api/companies/{code}/purchase-orders/{id}.
func (h *Handler) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.GetPurchaseOrder(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiSendPurchaseOrder handles POST /api/companies/{code}/purchase-orders/{id}/send.
func (h *Handler) apiSendPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := h.svc.SendPurchaseOrder(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// apiCancelPurchaseOrder handles POST /api/companies/{code}/purchase-orders/{id}/cancel.
func (h *Handler) apiCancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
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

	po, err := h.svc.CancelPurchaseOrder(r.Context(), companyCode(r), id, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, po)
}

// ── Shipping notices ─────────────────────────────────────────────────────────

// apiListASNs handles GET /api/companies/{code}/asns?status=S.
func (h *Handler) apiListASNs(w http.ResponseWriter, r *http.Request) {
	notices, err := h.svc.ListASNs(r.Context(), companyCode(r), statusFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"asns": notices})
}

// apiCreateASN handles POST /api/companies/{code}/asns.
func (h *Handler) apiCreateASN(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PurchaseOrderID   int                 `json:"purchase_order_id"`
		HoldingLocationID int                 `json:"holding_location_id"`
		ExpectedArrival   string              `json:"expected_arrival_date"`
		Lines             []core.ASNLineInput `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.PurchaseOrderID == 0 || body.HoldingLocationID == 0 || len(body.Lines) == 0 {
		writeError(w, r, "purchase_order_id, holding_location_id and at least one line are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	asn, err := h.svc.CreateASN(r.Context(), app.CreateASNRequest{
		CompanyCode:       companyCode(r),
		PurchaseOrderID:   body.PurchaseOrderID,
		HoldingLocationID: body.HoldingLocationID,
		ExpectedArrival:   body.ExpectedArrival,
		Lines:             body.Lines,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, asn)
}

// apiGetASN handles GET /api/companies/{code}/asns/{id}.
func (h *Handler) apiGetASN(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	asn, err := h.svc.GetASN(r.Context(), companyCode(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, asn)
}

// apiUpdateASNStatus handles POST /api/companies/{code}/asns/{id}/status.
func (h *Handler) apiUpdateASNStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" {
		writeError(w, r, "status is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	asn, err := h.svc.UpdateASNStatus(r.Context(), companyCode(r), id, core.ASNStatus(body.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, asn)
}

// apiCancelASN handles POST /api/companies/{code}/asns/{id}/cancel.
func (h *Handler) apiCancelASN(w http.ResponseWriter, r *http.Request) {
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

	asn, err := h.svc.CancelASN(r.Context(), companyCode(r), id, body.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, asn)
}

// apiProcessPutaway handles POST /api/companies/{code}/asn-details/{id}/putaway.
func (h *Handler) apiProcessPutaway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Quantity         decimal.Decimal `json:"quantity"`
		TargetLocationID int             `json:"target_location_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.TargetLocationID == 0 {
		writeError(w, r, "target_location_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	asn, err := h.svc.ProcessPutaway(r.Context(), companyCode(r), id, body.Quantity, body.TargetLocationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, asn)
}
