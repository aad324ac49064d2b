package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/canteen-meal-service/internal/apperr"
	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
	"github.com/iliyamo/canteen-meal-service/internal/model"
	"github.com/iliyamo/canteen-meal-service/internal/queue"
	"github.com/iliyamo/canteen-meal-service/internal/repository"
)

type mockConfirmations struct {
	confirmFn func(ctx context.Context, clog *model.ConfirmationLog, diningTime time.Time) error
	listFn    func(ctx context.Context, orderID string) ([]model.ConfirmationLog, error)
}

func (m *mockConfirmations) Confirm(ctx context.Context, clog *model.ConfirmationLog, diningTime time.Time) error {
	return m.confirmFn(ctx, clog, diningTime)
}
func (m *mockConfirmations) ListByOrder(ctx context.Context, orderID string) ([]model.ConfirmationLog, error) {
	return m.listFn(ctx, orderID)
}

type mockPublisher struct {
	err    error
	events []queue.MealConfirmedEvent
}

func (m *mockPublisher) PublishMealConfirmed(_ context.Context, event queue.MealConfirmedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// lunchOrder has Alice (2) and Bob (3) as members, registered by
// Admin X (1), dining on 2025-01-10.
func lunchOrder() *model.Order {
	return &model.Order{
		ID:             "ord-1",
		DepartmentID:   10,
		DepartmentName: "Engineering",
		RegistrantID:   1,
		RegistrantName: "Admin X",
		DiningDate:     "2025-01-10",
		MealType:       mealtime.Lunch,
		Status:         model.OrderStatusConfirmed,
		DiningStatus:   model.DiningOrdered,
		Members: []model.OrderMember{
			{UserID: 2, UserName: "Alice"},
			{UserID: 3, UserName: "Bob"},
		},
	}
}

type confirmFixture struct {
	svc       *ConfirmationService
	order     *model.Order
	publisher *mockPublisher
	stored    []*model.ConfirmationLog
}

// newConfirmFixture wires a service around one in-memory order using a
// UTC schedule with the default meal windows, with the clock pinned to
// lunch time on the dining date.
func newConfirmFixture(t *testing.T) *confirmFixture {
	t.Helper()
	f := &confirmFixture{order: lunchOrder(), publisher: &mockPublisher{}}
	orders := &mockOrders{
		getByIDFn: func(_ context.Context, id string) (*model.Order, error) {
			if id == f.order.ID {
				return f.order, nil
			}
			return nil, repository.ErrOrderNotFound
		},
	}
	confirmations := &mockConfirmations{
		confirmFn: func(_ context.Context, clog *model.ConfirmationLog, diningTime time.Time) error {
			f.stored = append(f.stored, clog)
			f.order.DiningStatus = model.DiningDined
			f.order.ActualDiningTime = &diningTime
			return nil
		},
	}
	schedule := mealtime.NewSchedule(time.UTC, nil)
	f.svc = NewConfirmationService(fixtureDirectory(), orders, confirmations, schedule, f.publisher)
	f.svc.now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestConfirmManualByMember(t *testing.T) {
	f := newConfirmFixture(t)

	res, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.DiningStatus != model.DiningDined {
		t.Errorf("dining status = %s", res.DiningStatus)
	}
	if res.Log.UserID != 2 || res.Log.UserName != "Alice" {
		t.Errorf("log target = %d %q", res.Log.UserID, res.Log.UserName)
	}
	if res.Log.ConfirmationType != model.ConfirmManual || res.Log.ConfirmedBy != nil {
		t.Errorf("log = %+v", res.Log)
	}
	if len(f.stored) != 1 {
		t.Fatalf("stored %d logs", len(f.stored))
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].OrderID != "ord-1" {
		t.Fatalf("published events = %+v", f.publisher.events)
	}
}

func TestConfirmManualByRegistrant(t *testing.T) {
	f := newConfirmFixture(t)

	// The registrant is not a booked member; the log falls back to them.
	res, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 1, Channel: model.ConfirmManual,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Log.UserID != 1 || res.Log.UserName != "Admin X" {
		t.Errorf("log target = %d %q", res.Log.UserID, res.Log.UserName)
	}
}

func TestConfirmManualByStranger(t *testing.T) {
	f := newConfirmFixture(t)

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 4, Channel: model.ConfirmManual,
	})
	if apperr.From(err).Code != apperr.CodeAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if len(f.stored) != 0 || len(f.publisher.events) != 0 {
		t.Fatal("rejected attempt must not write or publish")
	}
}

func TestConfirmQRChannel(t *testing.T) {
	f := newConfirmFixture(t)

	res, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 3, Channel: model.ConfirmQR,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Log.ConfirmationType != model.ConfirmQR || res.Log.UserID != 3 {
		t.Errorf("log = %+v", res.Log)
	}
}

func TestConfirmAdminChannel(t *testing.T) {
	f := newConfirmFixture(t)

	res, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 6, Channel: model.ConfirmAdmin, TargetUserID: 3,
		Remark: "confirmed at the counter",
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Log.UserID != 3 || res.Log.UserName != "Bob" {
		t.Errorf("log target = %d %q", res.Log.UserID, res.Log.UserName)
	}
	if res.Log.ConfirmedBy == nil || *res.Log.ConfirmedBy != 6 {
		t.Errorf("confirmed_by = %v", res.Log.ConfirmedBy)
	}
	if f.publisher.events[0].ConfirmedBy != 6 {
		t.Errorf("event confirmed_by = %d", f.publisher.events[0].ConfirmedBy)
	}
}

func TestConfirmAdminTargetNotBooked(t *testing.T) {
	f := newConfirmFixture(t)

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 6, Channel: model.ConfirmAdmin, TargetUserID: 4,
	})
	if apperr.From(err).Code != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmAdminRequiresAdminRole(t *testing.T) {
	f := newConfirmFixture(t)

	// Alice is a booked member, but the admin channel checks the role.
	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmAdmin,
	})
	if apperr.From(err).Code != apperr.CodeAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestConfirmUnknownChannel(t *testing.T) {
	f := newConfirmFixture(t)
	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: "phone",
	})
	if apperr.From(err).Code != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmCancelledOrder(t *testing.T) {
	f := newConfirmFixture(t)
	f.order.Status = model.OrderStatusCancelled
	f.order.DiningStatus = model.DiningCancelled

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	})
	if apperr.From(err).Code != apperr.CodeBusiness {
		t.Fatalf("expected business error, got %v", err)
	}
}

func TestConfirmTwiceConflicts(t *testing.T) {
	f := newConfirmFixture(t)

	if _, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	}); err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 3, Channel: model.ConfirmManual,
	})
	if apperr.From(err).Code != apperr.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(f.stored) != 1 {
		t.Fatalf("stored %d logs, want 1", len(f.stored))
	}
}

func TestConfirmLostRace(t *testing.T) {
	// The pre-check sees ordered but the guarded update loses to a
	// concurrent confirmation; the caller sees the same conflict as a
	// plain repeat.
	f := newConfirmFixture(t)
	f.svc.confirmations = &mockConfirmations{
		confirmFn: func(_ context.Context, _ *model.ConfirmationLog, _ time.Time) error {
			return repository.ErrAlreadyConfirmed
		},
	}
	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	})
	if apperr.From(err).Code != apperr.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(f.publisher.events) != 0 {
		t.Fatal("lost race must not publish")
	}
}

func TestConfirmOutsideWindowSameDay(t *testing.T) {
	f := newConfirmFixture(t)
	f.svc.now = func() time.Time { return time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC) }

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	})
	ae := apperr.From(err)
	if ae.Code != apperr.CodeBusiness {
		t.Fatalf("expected business error, got %v", err)
	}
	if !strings.Contains(ae.Message, "11:00-13:30") {
		t.Fatalf("message should name the window, got %q", ae.Message)
	}
}

func TestConfirmPastDateSkipsWindow(t *testing.T) {
	// Catching up on yesterday's order outside any window is allowed.
	f := newConfirmFixture(t)
	f.svc.now = func() time.Time { return time.Date(2025, 1, 11, 15, 0, 0, 0, time.UTC) }

	if _, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func TestConfirmFutureDateSkipsWindow(t *testing.T) {
	f := newConfirmFixture(t)
	f.svc.now = func() time.Time { return time.Date(2025, 1, 9, 23, 0, 0, 0, time.UTC) }

	if _, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func TestConfirmPublishFailureIgnored(t *testing.T) {
	f := newConfirmFixture(t)
	f.publisher.err = errors.New("broker down")

	if _, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	}); err != nil {
		t.Fatalf("Confirm should succeed despite publish failure: %v", err)
	}
}

func TestConfirmWithoutPublisher(t *testing.T) {
	f := newConfirmFixture(t)
	f.svc.publisher = nil

	if _, err := f.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: "ord-1", ActorID: 2, Channel: model.ConfirmManual,
	}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func TestBatchConfirmPartialFailure(t *testing.T) {
	okOrder := lunchOrder()
	dined := lunchOrder()
	dined.ID = "ord-2"
	dined.DiningStatus = model.DiningDined

	orders := &mockOrders{
		getByIDFn: func(_ context.Context, id string) (*model.Order, error) {
			switch id {
			case okOrder.ID:
				return okOrder, nil
			case dined.ID:
				return dined, nil
			}
			return nil, repository.ErrOrderNotFound
		},
	}
	confirmations := &mockConfirmations{
		confirmFn: func(_ context.Context, _ *model.ConfirmationLog, _ time.Time) error { return nil },
	}
	schedule := mealtime.NewSchedule(time.UTC, nil)
	svc := NewConfirmationService(fixtureDirectory(), orders, confirmations, schedule, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }

	res, err := svc.BatchConfirm(context.Background(), 6, []string{"ord-1", "ord-2", "missing"}, "sweep")
	if err != nil {
		t.Fatalf("BatchConfirm: %v", err)
	}
	if res.TotalCount != 3 || res.SuccessCount != 1 {
		t.Fatalf("counts = %d/%d", res.SuccessCount, res.TotalCount)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if res.Errors[0].OrderID != "ord-2" || res.Errors[0].Code != apperr.CodeConflict {
		t.Errorf("errors[0] = %+v", res.Errors[0])
	}
	if res.Errors[1].OrderID != "missing" || res.Errors[1].Code != apperr.CodeNotFound {
		t.Errorf("errors[1] = %+v", res.Errors[1])
	}
}

func TestBatchConfirmRequiresAdmin(t *testing.T) {
	f := newConfirmFixture(t)
	_, err := f.svc.BatchConfirm(context.Background(), 2, []string{"ord-1"}, "")
	if apperr.From(err).Code != apperr.CodeAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}
}
