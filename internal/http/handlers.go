package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saptoprawiroutomo/Pengadepan/internal/cart"
	"github.com/saptoprawiroutomo/Pengadepan/internal/catalog"
	"github.com/saptoprawiroutomo/Pengadepan/internal/sale"
	"github.com/saptoprawiroutomo/Pengadepan/internal/servicerequest"
)

// Committer is the slice of the commit engine the handlers use.
type Committer interface {
	Commit(ctx context.Context, req sale.CommitRequest) (*sale.Result, error)
}

// ServiceIntake matches servicerequest.Intake.
type ServiceIntake interface {
	Create(ctx context.Context, customerID, deviceType, brand, description string) (*servicerequest.Request, error)
	ListByCustomer(ctx context.Context, customerID string) ([]servicerequest.Request, error)
}

type Handler struct {
	engine  Committer
	sales   sale.Repository
	carts   cart.Repository
	catalog catalog.Repository
	intake  ServiceIntake
}

func NewHandler(engine Committer, sales sale.Repository, carts cart.Repository, cat catalog.Repository, intake ServiceIntake) *Handler {
	return &Handler{
		engine:  engine,
		sales:   sales,
		carts:   carts,
		catalog: cat,
		intake:  intake,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type checkoutRequest struct {
	CustomerID      string `json:"customerId"`
	ShippingAddress string `json:"shippingAddress"`
	ShippingCost    int64  `json:"shippingCost"`
	PaymentMethod   string `json:"paymentMethod"`
}

type commitResponse struct {
	Sale    *sale.Sale `json:"sale"`
	Warning string     `json:"warning,omitempty"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.CustomerID == "" || req.ShippingAddress == "" {
		writeError(w, http.StatusBadRequest, "customerId and shippingAddress are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.carts.Get(ctx, req.CustomerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	if c == nil || len(c.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	items := make([]sale.ItemRequest, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, sale.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "transfer"
	}

	res, err := h.engine.Commit(ctx, sale.CommitRequest{
		Channel:         sale.ChannelOnline,
		CustomerID:      req.CustomerID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		ShippingCost:    req.ShippingCost,
		PaymentMethod:   paymentMethod,
	})
	if err != nil {
		writeCommitError(w, err)
		return
	}

	resp := commitResponse{Sale: res.Sale}
	if res.CartWarning != nil {
		resp.Warning = res.CartWarning.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

type posRequest struct {
	CashierID string             `json:"cashierId"`
	Items     []sale.ItemRequest `json:"items"`
}

func (h *Handler) POSTransaction(w http.ResponseWriter, r *http.Request) {
	var req posRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.CashierID == "" {
		writeError(w, http.StatusBadRequest, "cashierId is required")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items must not be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.engine.Commit(ctx, sale.CommitRequest{
		Channel:   sale.ChannelPOS,
		CashierID: req.CashierID,
		Items:     req.Items,
	})
	if err != nil {
		writeCommitError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, commitResponse{Sale: res.Sale})
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "saleId")
	if saleID == "" {
		writeError(w, http.StatusBadRequest, "missing saleId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.sales.GetByID(ctx, saleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sale")
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "sale not found")
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "missing customerId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sales, err := h.sales.ListByCustomer(ctx, customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sales")
		return
	}

	writeJSON(w, http.StatusOK, sales)
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	p, err := h.catalog.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type adjustRequest struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

func (h *Handler) AdjustAvailability(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID == "" || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if err := h.catalog.SetStock(r.Context(), req.ProductID, req.Stock); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type serviceRequestBody struct {
	CustomerID  string `json:"customerId"`
	DeviceType  string `json:"deviceType"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
}

func (h *Handler) CreateServiceRequest(w http.ResponseWriter, r *http.Request) {
	var req serviceRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sr, err := h.intake.Create(ctx, req.CustomerID, req.DeviceType, req.Brand, req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, sr)
}

func (h *Handler) ListServiceRequests(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "missing customerId")
		return
	}

	reqs, err := h.intake.ListByCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load service requests")
		return
	}

	writeJSON(w, http.StatusOK, reqs)
}

// writeCommitError maps the sale error taxonomy onto HTTP statuses.
// Recoverable failures carry detail for the caller's retry/adjust UI;
// store-level failures collapse to a generic try-again signal.
func writeCommitError(w http.ResponseWriter, err error) {
	var insufficient *sale.InsufficientStockError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient stock",
			"productId": insufficient.ProductID,
			"name":      insufficient.Name,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
		return
	}

	var conflict *sale.ReservationConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "reservation conflict",
			"productId": conflict.ProductID,
		})
		return
	}

	switch {
	case errors.Is(err, sale.ErrNoItems):
		writeError(w, http.StatusBadRequest, "items must not be empty")
	case errors.Is(err, sale.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sale.ErrProductInactive):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, "temporary failure, try again")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
