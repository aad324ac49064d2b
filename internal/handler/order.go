package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/service"
)

// OrderHandler exposes the order ledger: batch creation, cancellation
// and order detail.  Authentication and role checks have already run
// in middleware; the service layer re-validates the actor's role
// against the directory so a stale token cannot book.
type OrderHandler struct {
	Orders        *service.OrderService
	Confirmations *service.ConfirmationService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *service.OrderService, confirmations *service.ConfirmationService) *OrderHandler {
	if orders == nil || confirmations == nil {
		panic("nil service passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders, Confirmations: confirmations}
}

type createOrderRequest struct {
	DiningDate   string   `json:"dining_date"`
	MealType     string   `json:"meal_type"`
	MemberIDs    []uint64 `json:"member_ids"`
	DepartmentID uint64   `json:"department_id"`
	Remark       string   `json:"remark"`
}

// Create handles POST /v1/orders: one batch order for one date and
// meal type covering the listed members.
func (h *OrderHandler) Create(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body createOrderRequest
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	order, err := h.Orders.CreateDepartmentOrder(c.Request().Context(), service.CreateOrderInput{
		ActorID:      actorID,
		DiningDate:   body.DiningDate,
		MealType:     body.MealType,
		MemberIDs:    body.MemberIDs,
		DepartmentID: body.DepartmentID,
		Remark:       body.Remark,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"order": order})
}

// CreateBatch handles POST /v1/orders/batch: many (date, meal type)
// combinations in one call with per-item success reporting.
func (h *OrderHandler) CreateBatch(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		Orders []struct {
			DiningDate   string   `json:"dining_date"`
			MealType     string   `json:"meal_type"`
			MemberIDs    []uint64 `json:"member_ids"`
			DepartmentID uint64   `json:"department_id"`
			Remark       string   `json:"remark"`
		} `json:"orders"`
	}
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	items := make([]service.BatchOrderItem, 0, len(body.Orders))
	for _, o := range body.Orders {
		items = append(items, service.BatchOrderItem{
			DiningDate:   o.DiningDate,
			MealType:     o.MealType,
			MemberIDs:    o.MemberIDs,
			DepartmentID: o.DepartmentID,
			Remark:       o.Remark,
		})
	}
	result, err := h.Orders.CreateBatchDepartmentOrders(c.Request().Context(), actorID, items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CreateQuickBatch handles POST /v1/orders/quick-batch: a date list
// crossed with a meal type list, one member list for every
// combination.
func (h *OrderHandler) CreateQuickBatch(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		Dates        []string `json:"dates"`
		MealTypes    []string `json:"meal_types"`
		MemberIDs    []uint64 `json:"member_ids"`
		DepartmentID uint64   `json:"department_id"`
		Remark       string   `json:"remark"`
	}
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	result, err := h.Orders.CreateQuickBatchOrders(c.Request().Context(), actorID,
		body.Dates, body.MealTypes, body.MemberIDs, body.DepartmentID, body.Remark)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DepartmentMembers handles GET /v1/departments/:id/members: the
// roster an administrator picks batch order members from.  Optional
// query parameters: include_inactive=true and keyword= for a name
// substring filter.
func (h *OrderHandler) DepartmentMembers(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	departmentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || departmentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
	}
	includeInactive := c.QueryParam("include_inactive") == "true"
	members, err := h.Orders.ListDepartmentMembers(c.Request().Context(), actorID, departmentID, includeInactive, c.QueryParam("keyword"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]echo.Map, 0, len(members))
	for _, m := range members {
		out = append(out, echo.Map{
			"user_id":   m.ID,
			"name":      m.Name,
			"role":      m.Role,
			"is_active": m.IsActive,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"members": out, "count": len(out)})
}

// Cancel handles DELETE /v1/orders/:id.
func (h *OrderHandler) Cancel(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	order, err := h.Orders.CancelOrder(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order})
}

// Get handles GET /v1/orders/:id: the order with its members and
// confirmation history.
func (h *OrderHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	order, err := h.Orders.GetOrder(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	logs, err := h.Confirmations.OrderLogs(ctx, order.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order, "confirmation_logs": logs})
}
