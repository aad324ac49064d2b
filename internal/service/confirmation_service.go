package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/canteen-meal-service/internal/apperr"
	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
	"github.com/iliyamo/canteen-meal-service/internal/model"
	"github.com/iliyamo/canteen-meal-service/internal/queue"
	"github.com/iliyamo/canteen-meal-service/internal/repository"
)

// ConfirmationStore persists confirmation transitions.  Implemented by
// *repository.ConfirmationRepo.  Confirm must perform the state guard
// and the update atomically so concurrent confirmations of one order
// yield exactly one success.
type ConfirmationStore interface {
	Confirm(ctx context.Context, clog *model.ConfirmationLog, diningTime time.Time) error
	ListByOrder(ctx context.Context, orderID string) ([]model.ConfirmationLog, error)
}

// EventPublisher announces successful confirmations to downstream
// consumers.  Implemented by *queue.Publisher.
type EventPublisher interface {
	PublishMealConfirmed(ctx context.Context, event queue.MealConfirmedEvent) error
}

// ConfirmationService is the confirmation engine: the single owner of
// the ordered -> dined transition, reachable from three channels that
// differ only in their authorization predicate.
type ConfirmationService struct {
	users         DirectoryStore
	orders        OrderStore
	confirmations ConfirmationStore
	schedule      *mealtime.Schedule
	publisher     EventPublisher // optional; nil disables events
	now           func() time.Time
}

// NewConfirmationService constructs a ConfirmationService.  publisher
// may be nil when no broker is configured.
func NewConfirmationService(users DirectoryStore, orders OrderStore, confirmations ConfirmationStore, schedule *mealtime.Schedule, publisher EventPublisher) *ConfirmationService {
	if users == nil || orders == nil || confirmations == nil || schedule == nil {
		panic("nil dependency passed to NewConfirmationService")
	}
	return &ConfirmationService{
		users:         users,
		orders:        orders,
		confirmations: confirmations,
		schedule:      schedule,
		publisher:     publisher,
		now:           time.Now,
	}
}

// ConfirmInput carries one confirmation attempt.  TargetUserID is
// honoured only on the admin channel and selects whose meal the log
// records; when zero it defaults to the order's sole member, or the
// registrant for multi-member orders.
type ConfirmInput struct {
	OrderID      string
	ActorID      uint64
	Channel      model.ConfirmationType
	TargetUserID uint64
	Remark       string
}

// ConfirmResult is the outcome of a successful confirmation: the new
// audit row plus the order's updated state.
type ConfirmResult struct {
	Log              *model.ConfirmationLog `json:"log"`
	DiningStatus     model.DiningStatus     `json:"dining_status"`
	ActualDiningTime time.Time              `json:"actual_dining_time"`
}

// Confirm validates and commits one ordered -> dined transition.
// Checks run in a fixed order: load, channel authorization, state
// guard, same-day time window, then the atomic transition.  A repeat
// attempt on a dined order fails with the same ConflictError every
// time, making double confirmation observable but harmless.
func (s *ConfirmationService) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	if !model.ValidConfirmationType(in.Channel) {
		return nil, apperr.Validation(fmt.Sprintf("unsupported confirmation channel %q", in.Channel))
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal("failed to load order")
	}

	if err := s.authorizeChannel(ctx, order, in); err != nil {
		return nil, err
	}

	// State guard.  Both terminal states are rejected before any write.
	if order.Status == model.OrderStatusCancelled || order.DiningStatus == model.DiningCancelled {
		return nil, apperr.Business("order cancelled")
	}
	if order.DiningStatus == model.DiningDined {
		return nil, apperr.Conflict("order already confirmed")
	}

	now := s.now()
	// The time-window guard applies only to orders dined today in the
	// canonical meal zone.  Historical corrections and confirmations of
	// future-dated orders are deliberately unrestricted.
	if order.DiningDate == s.schedule.Today(now) && !s.schedule.InWindow(order.MealType, now) {
		window, _ := s.schedule.WindowFor(order.MealType)
		return nil, apperr.Business(fmt.Sprintf("%s confirmation is only allowed between %s", order.MealType.Label(), window))
	}

	target, err := s.logTarget(order, in)
	if err != nil {
		return nil, err
	}

	clog := &model.ConfirmationLog{
		ID:               uuid.NewString(),
		OrderID:          order.ID,
		UserID:           target.UserID,
		UserName:         target.UserName,
		ConfirmationType: in.Channel,
		ConfirmationTime: now.UTC(),
		Remark:           in.Remark,
		CreatedAt:        now.UTC(),
	}
	if in.Channel == model.ConfirmAdmin {
		actorID := in.ActorID
		clog.ConfirmedBy = &actorID
	}

	if err := s.confirmations.Confirm(ctx, clog, now.UTC()); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, apperr.NotFound("order not found")
		case errors.Is(err, repository.ErrAlreadyConfirmed):
			// Lost a race against a concurrent confirmation; same
			// error shape as the pre-check.
			return nil, apperr.Conflict("order already confirmed")
		case errors.Is(err, repository.ErrOrderCancelled):
			return nil, apperr.Business("order cancelled")
		}
		return nil, apperr.Internal("failed to confirm order")
	}

	s.publishConfirmed(ctx, order, clog)

	return &ConfirmResult{
		Log:              clog,
		DiningStatus:     model.DiningDined,
		ActualDiningTime: now.UTC(),
	}, nil
}

// authorizeChannel applies the per-channel authorization predicate.
// The manual and qr channels require the actor to be the registrant or
// a listed member; the admin channel requires an active administrator
// role.  Rejections are deliberately vague so unauthorized callers
// cannot distinguish "exists" from "not yours".
func (s *ConfirmationService) authorizeChannel(ctx context.Context, order *model.Order, in ConfirmInput) error {
	switch in.Channel {
	case model.ConfirmManual, model.ConfirmQR:
		if in.ActorID != order.RegistrantID && !order.HasMember(in.ActorID) {
			return apperr.Authorization("order not found or not permitted")
		}
	case model.ConfirmAdmin:
		actor, err := s.users.GetByID(ctx, in.ActorID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return apperr.Authorization("order not found or not permitted")
			}
			return apperr.Internal("directory lookup failed")
		}
		if !actor.IsActive || !model.IsAdminRole(actor.Role) {
			return apperr.Authorization("order not found or not permitted")
		}
	}
	return nil
}

// logTarget selects the person the confirmation log records.
func (s *ConfirmationService) logTarget(order *model.Order, in ConfirmInput) (model.OrderMember, error) {
	if in.Channel == model.ConfirmAdmin && in.TargetUserID != 0 {
		for _, m := range order.Members {
			if m.UserID == in.TargetUserID {
				return m, nil
			}
		}
		return model.OrderMember{}, apperr.Validation("target user is not booked on this order")
	}
	// Self-service channels record the acting member; a registrant who
	// is not booked personally confirms on behalf of the group.
	if in.Channel != model.ConfirmAdmin {
		for _, m := range order.Members {
			if m.UserID == in.ActorID {
				return m, nil
			}
		}
		return model.OrderMember{UserID: order.RegistrantID, UserName: order.RegistrantName}, nil
	}
	if len(order.Members) == 1 {
		return order.Members[0], nil
	}
	return model.OrderMember{UserID: order.RegistrantID, UserName: order.RegistrantName}, nil
}

// publishConfirmed emits the meal.confirmed event.  Failures are logged
// and ignored; the committed transition is authoritative.
func (s *ConfirmationService) publishConfirmed(ctx context.Context, order *model.Order, clog *model.ConfirmationLog) {
	if s.publisher == nil {
		return
	}
	event := queue.MealConfirmedEvent{
		ConfirmationID: clog.ID,
		OrderID:        order.ID,
		UserID:         clog.UserID,
		UserName:       clog.UserName,
		DepartmentID:   order.DepartmentID,
		DepartmentName: order.DepartmentName,
		DiningDate:     order.DiningDate,
		MealType:       string(order.MealType),
		Channel:        string(clog.ConfirmationType),
		ConfirmedAt:    clog.ConfirmationTime.Format(time.RFC3339),
	}
	if clog.ConfirmedBy != nil {
		event.ConfirmedBy = *clog.ConfirmedBy
	}
	if err := s.publisher.PublishMealConfirmed(ctx, event); err != nil {
		log.Printf("confirmation: publish event failed for order %s: %v", order.ID, err)
	}
}

// BatchConfirmError reports one failed order id of a batch confirmation.
type BatchConfirmError struct {
	OrderID string `json:"order_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchConfirmResult aggregates a batch confirmation outcome.
type BatchConfirmResult struct {
	SuccessCount int                 `json:"success_count"`
	TotalCount   int                 `json:"total_count"`
	Errors       []BatchConfirmError `json:"errors"`
}

// BatchConfirm applies an admin confirmation to each order id
// independently with the same partial-failure policy as batch order
// creation.  The actor's administrator role is checked once up front.
func (s *ConfirmationService) BatchConfirm(ctx context.Context, actorID uint64, orderIDs []string, remark string) (*BatchConfirmResult, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.Authorization("requires an active department administrator")
		}
		return nil, apperr.Internal("directory lookup failed")
	}
	if !actor.IsActive || !model.IsAdminRole(actor.Role) {
		return nil, apperr.Authorization("requires an active department administrator")
	}
	if len(orderIDs) == 0 {
		return nil, apperr.Validation("order id list must not be empty")
	}

	result := &BatchConfirmResult{
		TotalCount: len(orderIDs),
		Errors:     make([]BatchConfirmError, 0),
	}
	for _, id := range orderIDs {
		_, err := s.Confirm(ctx, ConfirmInput{
			OrderID: id,
			ActorID: actorID,
			Channel: model.ConfirmAdmin,
			Remark:  remark,
		})
		if err != nil {
			ae := apperr.From(err)
			result.Errors = append(result.Errors, BatchConfirmError{
				OrderID: id,
				Code:    ae.Code,
				Message: ae.Error(),
			})
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// OrderLogs returns the confirmation history of an order.
func (s *ConfirmationService) OrderLogs(ctx context.Context, orderID string) ([]model.ConfirmationLog, error) {
	logs, err := s.confirmations.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("failed to load confirmation logs")
	}
	return logs, nil
}
