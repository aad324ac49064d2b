package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/service"
)

// ReportHandler exposes the read-only reporting endpoints.  These
// routes sit behind the response cache middleware, so they must stay
// deterministic for a given URL.
type ReportHandler struct {
	Reports *service.ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	if reports == nil {
		panic("nil service passed to NewReportHandler")
	}
	return &ReportHandler{Reports: reports}
}

// UserDiningStatus handles GET /v1/users/:id/dining-status?date=.
func (h *ReportHandler) UserDiningStatus(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	status, err := h.Reports.GetUserConfirmationStatus(c.Request().Context(), userID, c.QueryParam("date"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// DepartmentStats handles GET /v1/departments/stats?date=&department_id=.
func (h *ReportHandler) DepartmentStats(c echo.Context) error {
	var departmentID uint64
	if raw := c.QueryParam("department_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
		}
		departmentID = id
	}
	stats, err := h.Reports.GetDepartmentConfirmationStats(c.Request().Context(), c.QueryParam("date"), departmentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}

// ListOrders handles GET /v1/orders?date=&meal_type=&department_id=&limit=.
func (h *ReportHandler) ListOrders(c echo.Context) error {
	in := service.ListOrdersInput{
		DiningDate: c.QueryParam("date"),
		MealType:   c.QueryParam("meal_type"),
	}
	if raw := c.QueryParam("department_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid department id"})
		}
		in.DepartmentID = id
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		in.Limit = n
	}
	orders, err := h.Reports.ListOrders(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders, "count": len(orders)})
}
