package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DevMad123/enma-commerce-core/internal/domain"
	"github.com/DevMad123/enma-commerce-core/internal/service"
)

// actorHeader carries the authenticated actor resolved by the auth layer in
// front of this service. The core never reads ambient session state.
const actorHeader = "X-Actor-ID"

func actorFrom(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(actorHeader)
	if raw == "" {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: "missing_actor", Message: actorHeader + " header is required",
		})
		return uuid.Nil, false
	}
	actor, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: "invalid_actor", Message: actorHeader + " must be a UUID",
		})
		return uuid.Nil, false
	}
	return actor, true
}

func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_id", Message: "id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var (
		stockErr      *domain.InsufficientStockError
		transitionErr *domain.InvalidStateTransitionError
		validationErr *domain.ValidationError
		immutableErr  *domain.ImmutableRecordError
		notFoundErr   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Error: "insufficient_stock", Message: stockErr.Error(),
			Details: map[string]any{
				"product_id":   stockErr.ProductID,
				"product_name": stockErr.ProductName,
				"requested":    stockErr.Requested,
				"available":    stockErr.Available,
			},
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, errorResponse{
			Error: "invalid_state_transition", Message: transitionErr.Error(),
			Details: map[string]any{
				"entity": transitionErr.Entity,
				"id":     transitionErr.ID,
				"from":   transitionErr.From,
				"to":     transitionErr.To,
			},
		})
	case errors.As(err, &immutableErr):
		c.JSON(http.StatusConflict, errorResponse{
			Error: "immutable_record", Message: immutableErr.Error(),
			Details: map[string]any{"entity": immutableErr.Entity, "id": immutableErr.ID},
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: "validation_error", Message: validationErr.Error(),
			Details: map[string]any{"field": validationErr.Field, "reason": validationErr.Reason},
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not_found", Message: notFoundErr.Error()})
	default:
		slog.Error("unhandled error", "err", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "internal_error", Message: "an unexpected error occurred",
		})
	}
}

func (s *Server) handleCheckout(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}

	checkout := service.CheckoutRequest{
		Contact: service.ContactInfo{
			Name:  req.Contact.Name,
			Email: req.Contact.Email,
			Phone: req.Contact.Phone,
		},
		ShippingMethodID: req.ShippingMethodID,
		PaymentMethodID:  req.PaymentMethodID,
		ShippingAddress:  req.ShippingAddress,
	}
	for _, item := range req.Items {
		checkout.Items = append(checkout.Items, service.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := s.checkout.Checkout(c.Request.Context(), actor, checkout)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// handleCreateOrder is the back-office entry: the customer already exists and
// is referenced directly, unlike the storefront checkout.
func (s *Server) handleCreateOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}

	draft := service.OrderDraft{
		CustomerID:       req.CustomerID,
		ShippingMethodID: req.ShippingMethodID,
		PaymentMethodID:  req.PaymentMethodID,
		ShippingAddress:  req.ShippingAddress,
		ShippingCost:     req.ShippingCost,
		Discount:         req.Discount,
		Tax:              req.Tax,
	}
	for _, item := range req.Items {
		draft.Lines = append(draft.Lines, service.DraftLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := s.orders.CreateOrder(c.Request.Context(), actor, draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	order, err := s.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleUpdateOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	order, err := s.orders.UpdateOrder(c.Request.Context(), actor, id, service.OrderPatch{
		ShippingAddress: req.ShippingAddress,
		Discount:        req.Discount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	status, known := domain.ParseOrderStatus(req.Status)
	if !known {
		writeError(c, &domain.ValidationError{Field: "status", Reason: "unknown order status"})
		return
	}
	order, err := s.orders.UpdateStatus(c.Request.Context(), actor, id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	order, err := s.orders.CancelOrder(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleStatistics(c *gin.Context) {
	var filter domain.StatisticsFilter
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, &domain.ValidationError{Field: "from", Reason: "must be RFC3339"})
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, &domain.ValidationError{Field: "to", Reason: "must be RFC3339"})
			return
		}
		filter.To = &t
	}
	if raw := c.Query("status"); raw != "" {
		status, known := domain.ParseOrderStatus(raw)
		if !known {
			writeError(c, &domain.ValidationError{Field: "status", Reason: "unknown order status"})
			return
		}
		filter.Status = &status
	}

	stats, err := s.orders.Statistics(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleRecordPayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	payment, err := s.payments.Record(c.Request.Context(), actor, id, req.Amount, req.Method, req.Confirmed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *Server) handleListPayments(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	payments, err := s.payments.ListByOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (s *Server) handleMarkSuccess(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req markSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	payment, err := s.payments.MarkSuccess(c.Request.Context(), actor, id, req.TransactionRef)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) handleMarkFailed(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req markFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	payment, err := s.payments.MarkFailed(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) handleRefund(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	payment, err := s.payments.Refund(c.Request.Context(), actor, id, req.Amount, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) handleCancelPayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	payment, err := s.payments.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
