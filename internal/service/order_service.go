// Package service implements the order ledger and the confirmation
// engine on top of the repository layer.  Services depend on small
// store interfaces rather than concrete repositories so the business
// rules can be exercised in tests without a database.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/canteen-meal-service/internal/apperr"
	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
	"github.com/iliyamo/canteen-meal-service/internal/model"
	"github.com/iliyamo/canteen-meal-service/internal/repository"
)

// DirectoryStore resolves users from the external directory.
// Implemented by *repository.UserRepo.
type DirectoryStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*model.User, error)
	ListDepartmentMembers(ctx context.Context, departmentID uint64, includeInactive bool, keyword string) ([]*model.User, error)
}

// DepartmentStore resolves departments from the external directory.
// Implemented by *repository.DepartmentRepo.
type DepartmentStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Department, error)
}

// MenuStore resolves published menus from the external catalog.
// Implemented by *repository.MenuRepo.
type MenuStore interface {
	GetPublished(ctx context.Context, date string, meal mealtime.MealType) (*model.Menu, error)
}

// OrderStore persists orders.  Implemented by *repository.OrderRepo.
// Create must run the duplicate-booking read and the insert in one
// transaction and report overlaps as *repository.DuplicateBookingError.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	Cancel(ctx context.Context, id string, now time.Time) (*model.Order, error)
}

// OrderService is the order ledger: it owns batch order creation and
// cancellation and enforces the membership and duplicate-booking
// invariants.
type OrderService struct {
	users       DirectoryStore
	departments DepartmentStore
	menus       MenuStore
	orders      OrderStore
	now         func() time.Time
}

// NewOrderService constructs an OrderService.  All stores must be non-nil.
func NewOrderService(users DirectoryStore, departments DepartmentStore, menus MenuStore, orders OrderStore) *OrderService {
	if users == nil || departments == nil || menus == nil || orders == nil {
		panic("nil store passed to NewOrderService")
	}
	return &OrderService{
		users:       users,
		departments: departments,
		menus:       menus,
		orders:      orders,
		now:         time.Now,
	}
}

// CreateOrderInput is the validated input for one batch order.
// DepartmentID is optional and honoured only for system administrators,
// who may book on behalf of any department; everyone else books for
// their own.
type CreateOrderInput struct {
	ActorID      uint64
	DiningDate   string
	MealType     string
	MemberIDs    []uint64
	DepartmentID uint64
	Remark       string
}

// CreateDepartmentOrder validates and commits one batch order.  Checks
// run in a fixed order and fail fast: actor role, input shape,
// membership, then the duplicate-booking rule inside the storage
// transaction.  All members of a single call are booked or none are.
func (s *OrderService) CreateDepartmentOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	actor, err := s.requireAdmin(ctx, in.ActorID)
	if err != nil {
		return nil, err
	}

	date, err := mealtime.ParseDate(in.DiningDate)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	meal, err := mealtime.Parse(in.MealType)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if len(in.MemberIDs) == 0 {
		return nil, apperr.Validation("member list must not be empty")
	}
	if dups := duplicateIDs(in.MemberIDs); len(dups) > 0 {
		return nil, apperr.Validation("duplicate member ids in request", formatIDs(dups)...)
	}

	// Resolve the booking department: the actor's own, or an explicit
	// target for system administrators.
	deptID := actor.DepartmentID
	if in.DepartmentID != 0 && actor.Role == model.RoleSysAdmin {
		deptID = in.DepartmentID
	}
	dept, err := s.departments.GetByID(ctx, deptID)
	if err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			return nil, apperr.NotFound("department not found", strconv.FormatUint(deptID, 10))
		}
		return nil, apperr.Internal("directory lookup failed")
	}

	members, err := s.resolveMembers(ctx, in.MemberIDs, dept.ID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	menu, err := s.menus.GetPublished(ctx, date, meal)
	switch {
	case err == nil:
		total = menu.Total()
	case errors.Is(err, repository.ErrMenuNotFound):
		// Ordering ahead of menu publication is allowed; the total
		// stays zero.
	default:
		return nil, apperr.Internal("menu lookup failed")
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:             uuid.NewString(),
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		RegistrantID:   actor.ID,
		RegistrantName: actor.Name,
		DiningDate:     date,
		MealType:       meal,
		Status:         model.OrderStatusConfirmed,
		DiningStatus:   model.DiningOrdered,
		TotalAmount:    total,
		Remark:         in.Remark,
		CreatedAt:      now,
		UpdatedAt:      now,
		Members:        members,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		var dup *repository.DuplicateBookingError
		if errors.As(err, &dup) {
			return nil, apperr.Conflict("members already booked for this meal", s.memberNames(members, dup.UserIDs)...)
		}
		return nil, apperr.Internal("failed to create order")
	}
	return order, nil
}

// requireAdmin loads the actor and verifies the booking role.  A
// missing actor is reported the same way as a role mismatch so callers
// cannot probe for account existence.
func (s *OrderService) requireAdmin(ctx context.Context, actorID uint64) (*model.User, error) {
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
	return actor, nil
}

// resolveMembers loads every member id, requires each to be an active
// user, and requires each to belong to the booking department.
func (s *OrderService) resolveMembers(ctx context.Context, ids []uint64, departmentID uint64) ([]model.OrderMember, error) {
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("directory lookup failed")
	}
	var missing []uint64
	var foreign []string
	members := make([]model.OrderMember, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok || !u.IsActive {
			missing = append(missing, id)
			continue
		}
		if u.DepartmentID != departmentID {
			foreign = append(foreign, u.Name)
			continue
		}
		members = append(members, model.OrderMember{UserID: u.ID, UserName: u.Name})
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound("members not found or inactive", formatIDs(missing)...)
	}
	if len(foreign) > 0 {
		return nil, apperr.Business("members belong to a different department", foreign...)
	}
	return members, nil
}

// memberNames maps conflicting user ids back to the display names from
// the resolved member list.  When the conflict was raised by the
// storage uniqueness key the id list is empty and every member is
// named, since the specific loser is unknown.
func (s *OrderService) memberNames(members []model.OrderMember, ids []uint64) []string {
	if len(ids) == 0 {
		names := make([]string, 0, len(members))
		for _, m := range members {
			names = append(names, m.UserName)
		}
		return names
	}
	byID := make(map[uint64]string, len(members))
	for _, m := range members {
		byID[m.UserID] = m.UserName
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, strconv.FormatUint(id, 10))
		}
	}
	return names
}

// BatchOrderItem is one (date, meal type) combination in a batch
// request.
type BatchOrderItem struct {
	DiningDate   string
	MealType     string
	MemberIDs    []uint64
	DepartmentID uint64
	Remark       string
}

// BatchOrderError reports one failed combination of a batch request.
type BatchOrderError struct {
	Index      int    `json:"index"`
	DiningDate string `json:"dining_date"`
	MealType   string `json:"meal_type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// BatchOrderResult aggregates a batch creation outcome.
type BatchOrderResult struct {
	TotalOrders  int               `json:"total_orders"`
	SuccessCount int               `json:"success_count"`
	FailedCount  int               `json:"failed_count"`
	Orders       []*model.Order    `json:"orders"`
	Errors       []BatchOrderError `json:"errors"`
}

// CreateBatchDepartmentOrders applies CreateDepartmentOrder to each
// item independently.  Each combination is validated and committed or
// rejected on its own: a failure in one does not roll back the others.
// Department admins plan many meals at once and a single bad date must
// not void the rest.
func (s *OrderService) CreateBatchDepartmentOrders(ctx context.Context, actorID uint64, items []BatchOrderItem) (*BatchOrderResult, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.Validation("order list must not be empty")
	}
	result := &BatchOrderResult{
		TotalOrders: len(items),
		Orders:      make([]*model.Order, 0, len(items)),
		Errors:      make([]BatchOrderError, 0),
	}
	for i, item := range items {
		order, err := s.CreateDepartmentOrder(ctx, CreateOrderInput{
			ActorID:      actorID,
			DiningDate:   item.DiningDate,
			MealType:     item.MealType,
			MemberIDs:    item.MemberIDs,
			DepartmentID: item.DepartmentID,
			Remark:       item.Remark,
		})
		if err != nil {
			ae := apperr.From(err)
			result.FailedCount++
			result.Errors = append(result.Errors, BatchOrderError{
				Index:      i,
				DiningDate: item.DiningDate,
				MealType:   item.MealType,
				Code:       ae.Code,
				Message:    ae.Error(),
			})
			continue
		}
		result.SuccessCount++
		result.Orders = append(result.Orders, order)
	}
	return result, nil
}

// CreateQuickBatchOrders expands a date list crossed with a meal type
// list into individual combinations, all sharing one member list, and
// delegates to CreateBatchDepartmentOrders.
func (s *OrderService) CreateQuickBatchOrders(ctx context.Context, actorID uint64, dates []string, mealTypes []string, memberIDs []uint64, departmentID uint64, remark string) (*BatchOrderResult, error) {
	if len(dates) == 0 || len(mealTypes) == 0 {
		return nil, apperr.Validation("dates and meal types must not be empty")
	}
	items := make([]BatchOrderItem, 0, len(dates)*len(mealTypes))
	for _, d := range dates {
		for _, m := range mealTypes {
			items = append(items, BatchOrderItem{
				DiningDate:   d,
				MealType:     m,
				MemberIDs:    memberIDs,
				DepartmentID: departmentID,
				Remark:       remark,
			})
		}
	}
	return s.CreateBatchDepartmentOrders(ctx, actorID, items)
}

// ListDepartmentMembers returns the roster an administrator picks
// batch order members from.  Department admins may only list their own
// department; system administrators may list any.  Inactive accounts
// are excluded unless includeInactive is set, and keyword filters by
// name substring.
func (s *OrderService) ListDepartmentMembers(ctx context.Context, actorID, departmentID uint64, includeInactive bool, keyword string) ([]*model.User, error) {
	actor, err := s.requireAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if departmentID == 0 {
		departmentID = actor.DepartmentID
	}
	if actor.Role != model.RoleSysAdmin && departmentID != actor.DepartmentID {
		return nil, apperr.Authorization("may only list your own department")
	}
	if _, err := s.departments.GetByID(ctx, departmentID); err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			return nil, apperr.NotFound("department not found", strconv.FormatUint(departmentID, 10))
		}
		return nil, apperr.Internal("directory lookup failed")
	}
	members, err := s.users.ListDepartmentMembers(ctx, departmentID, includeInactive, keyword)
	if err != nil {
		return nil, apperr.Internal("directory lookup failed")
	}
	return members, nil
}

// GetOrder returns one order with its members.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Internal("failed to load order")
	}
	return order, nil
}

// CancelOrder moves an order to cancelled, releasing its members'
// booking slots.  The registrant and administrators may cancel; dined
// and cancelled orders are terminal.
func (s *OrderService) CancelOrder(ctx context.Context, actorID uint64, orderID string) (*model.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.Authorization("order not found or not permitted")
		}
		return nil, apperr.Internal("directory lookup failed")
	}
	allowed := actor.ID == order.RegistrantID ||
		actor.Role == model.RoleSysAdmin ||
		(actor.Role == model.RoleDeptAdmin && actor.DepartmentID == order.DepartmentID)
	if !actor.IsActive || !allowed {
		return nil, apperr.Authorization("order not found or not permitted")
	}

	cancelled, err := s.orders.Cancel(ctx, orderID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, apperr.NotFound("order not found")
		case errors.Is(err, repository.ErrAlreadyConfirmed):
			return nil, apperr.Business("order already confirmed")
		case errors.Is(err, repository.ErrOrderCancelled):
			return nil, apperr.Business("order already cancelled")
		}
		return nil, apperr.Internal("failed to cancel order")
	}
	return cancelled, nil
}

// duplicateIDs returns the ids that appear more than once, each
// reported once, preserving first-occurrence order.
func duplicateIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]int, len(ids))
	var dups []uint64
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

func formatIDs(ids []uint64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, fmt.Sprintf("%d", id))
	}
	return out
}
