package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/model"
	"github.com/iliyamo/canteen-meal-service/internal/service"
	"github.com/iliyamo/canteen-meal-service/internal/utils"
)

// ConfirmationHandler exposes the three confirmation channels and the
// batch sweep.  QRSecret verifies the signed scan tokens presented by
// the canteen turnstile devices; the tokens themselves are issued
// elsewhere.
type ConfirmationHandler struct {
	Confirmations *service.ConfirmationService
	QRSecret      string
}

// NewConfirmationHandler constructs a ConfirmationHandler.
func NewConfirmationHandler(confirmations *service.ConfirmationService, qrSecret string) *ConfirmationHandler {
	if confirmations == nil {
		panic("nil service passed to NewConfirmationHandler")
	}
	return &ConfirmationHandler{Confirmations: confirmations, QRSecret: qrSecret}
}

// Confirm handles POST /v1/orders/:id/confirm: self-service
// confirmation by a booked member or the registrant.
func (h *ConfirmationHandler) Confirm(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		Remark string `json:"remark"`
	}
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	result, err := h.Confirmations.Confirm(c.Request().Context(), service.ConfirmInput{
		OrderID: c.Param("id"),
		ActorID: actorID,
		Channel: model.ConfirmManual,
		Remark:  body.Remark,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ConfirmAdmin handles POST /v1/orders/:id/confirm/admin: proxy
// confirmation by an administrator, optionally naming which member's
// meal the log records.
func (h *ConfirmationHandler) ConfirmAdmin(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		TargetUserID uint64 `json:"target_user_id"`
		Remark       string `json:"remark"`
	}
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	result, err := h.Confirmations.Confirm(c.Request().Context(), service.ConfirmInput{
		OrderID:      c.Param("id"),
		ActorID:      actorID,
		Channel:      model.ConfirmAdmin,
		TargetUserID: body.TargetUserID,
		Remark:       body.Remark,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ConfirmQR handles POST /v1/confirmations/qr.  The turnstile device
// posts the scanned token; the acting member is the token's subject,
// so the device's own bearer identity never reaches the service layer.
// The order id comes from the token when the code is order-bound, or
// from the body otherwise.
func (h *ConfirmationHandler) ConfirmQR(c echo.Context) error {
	var body struct {
		Token   string `json:"token"`
		OrderID string `json:"order_id"`
	}
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	if body.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	claims, err := utils.ParseQRScanToken(body.Token, h.QRSecret)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid scan token"})
	}
	orderID := claims.OrderID
	if orderID == "" {
		orderID = body.OrderID
	}
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id is required"})
	}
	result, err := h.Confirmations.Confirm(c.Request().Context(), service.ConfirmInput{
		OrderID: orderID,
		ActorID: claims.UserID,
		Channel: model.ConfirmQR,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ConfirmBatch handles POST /v1/confirmations/batch: an administrator
// confirming many orders in one sweep with per-order error reporting.
func (h *ConfirmationHandler) ConfirmBatch(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		OrderIDs []string `json:"order_ids"`
		Remark   string   `json:"remark"`
	}
	if err := bindJSON(c, &body); err != nil {
		return writeError(c, err)
	}
	result, err := h.Confirmations.BatchConfirm(c.Request().Context(), actorID, body.OrderIDs, body.Remark)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
