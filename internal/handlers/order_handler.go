package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/services"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderHandler struct {
	BaseHandler
	orderService    services.OrderService
	checkoutService services.CheckoutService
	reportService   services.ReportService
}

func NewOrderHandler(
	orderService services.OrderService,
	checkoutService services.CheckoutService,
	reportService services.ReportService,
	logger utils.Logger,
) *OrderHandler {
	return &OrderHandler{
		BaseHandler:     NewBaseHandler(logger),
		orderService:    orderService,
		checkoutService: checkoutService,
		reportService:   reportService,
	}
}

// CreateOrder prices the cart from the catalog and stores an unpaid order
// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param order body services.CreateOrderRequest true "Cart"
// @Success 201 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), h.principal(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Order created", "order_id", order.ID, "total", order.TotalPrice.String())
	c.JSON(http.StatusCreated, order)
}

// GetOrder returns one of the caller's orders
// @Summary Get order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), h.principal(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// MyOrders lists the caller's orders
// @Summary My orders
// @Tags orders
// @Produce json
// @Success 200 {array} models.Order
// @Router /orders/mine [get]
func (h *OrderHandler) MyOrders(c *gin.Context) {
	orders, err := h.orderService.ListMine(c.Request.Context(), h.principal(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// PayOrder confirms a provider payment for the order
// @Summary Pay order
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param payment body services.PaymentConfirmationRequest true "Provider payment result"
// @Success 200 {object} models.Order
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/pay [put]
func (h *OrderHandler) PayOrder(c *gin.Context) {
	var req services.PaymentConfirmationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	h.LogRequest(c, "Confirming payment", "order_id", id, "transaction_id", req.ID)

	order, err := h.orderService.ConfirmPayment(c.Request.Context(), h.principal(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Checkout confirms payment and enrolls the caller in every ordered course
// @Summary Pay and enroll
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param payment body services.PaymentConfirmationRequest true "Provider payment result"
// @Success 200 {object} services.CheckoutResult
// @Failure 402 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req services.PaymentConfirmationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	h.LogRequest(c, "Checking out", "order_id", id, "transaction_id", req.ID)

	result, err := h.checkoutService.PayAndEnroll(c.Request.Context(), h.principal(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ===== ADMINISTRATION =====

// ListOrders lists every order
// @Summary List orders
// @Tags admin
// @Produce json
// @Param is_paid query bool false "Paid filter"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} models.OrderList
// @Failure 403 {object} ErrorResponse
// @Router /admin/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var params services.OrderListParams
	if !h.bindQuery(c, &params) {
		return
	}

	list, err := h.orderService.ListAll(c.Request.Context(), h.principal(c), params)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExportOrders downloads matching orders as an Excel workbook
// @Summary Export orders
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param is_paid query bool false "Paid filter"
// @Param from query string false "Created at or after (YYYY-MM-DD or RFC 3339)"
// @Param to query string false "Created at or before (YYYY-MM-DD or RFC 3339)"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/orders/export [get]
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	isPaid, err := parseBoolQuery(c, "is_paid")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid is_paid", Details: err.Error()})
		return
	}
	from, err := parseDateQuery(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid from", Details: err.Error()})
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid to", Details: err.Error()})
		return
	}

	data, err := h.reportService.ExportOrders(c.Request.Context(), h.principal(c), isPaid, from, to)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
