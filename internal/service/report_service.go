package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/canteen-meal-service/internal/apperr"
	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
	"github.com/iliyamo/canteen-meal-service/internal/model"
	"github.com/iliyamo/canteen-meal-service/internal/repository"
)

// ReportStore exposes the read-side queries of the order ledger.
// Implemented by *repository.OrderRepo.
type ReportStore interface {
	List(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error)
	UserMealStatuses(ctx context.Context, userID uint64, date string) ([]repository.UserMealStatus, error)
	DepartmentStats(ctx context.Context, date string, departmentID uint64) ([]repository.DepartmentStatRow, error)
}

// ReportService answers the read-only reporting queries: a user's
// per-meal dining status, per-department confirmation counts and the
// order history listing.  It never mutates state.
type ReportService struct {
	orders   ReportStore
	schedule *mealtime.Schedule
	now      func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(orders ReportStore, schedule *mealtime.Schedule) *ReportService {
	if orders == nil || schedule == nil {
		panic("nil dependency passed to NewReportService")
	}
	return &ReportService{orders: orders, schedule: schedule, now: time.Now}
}

// MealStatus is one meal slot of a user's day.
type MealStatus struct {
	MealType         mealtime.MealType  `json:"meal_type"`
	Ordered          bool               `json:"ordered"`
	OrderID          string             `json:"order_id,omitempty"`
	DiningStatus     model.DiningStatus `json:"dining_status,omitempty"`
	ActualDiningTime *time.Time         `json:"actual_dining_time,omitempty"`
	TotalAmount      decimal.Decimal    `json:"total_amount"`
}

// UserDiningStatus is a user's full day: one entry per meal type in
// canonical order, whether booked or not.
type UserDiningStatus struct {
	UserID uint64       `json:"user_id"`
	Date   string       `json:"date"`
	Meals  []MealStatus `json:"meals"`
}

// GetUserConfirmationStatus reports the user's registration and dining
// state for every meal of the given date.  An empty date means today
// in the canonical meal zone.
func (s *ReportService) GetUserConfirmationStatus(ctx context.Context, userID uint64, date string) (*UserDiningStatus, error) {
	if userID == 0 {
		return nil, apperr.Validation("user id is required")
	}
	date, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.orders.UserMealStatuses(ctx, userID, date)
	if err != nil {
		return nil, apperr.Internal("failed to load dining status")
	}
	byMeal := make(map[mealtime.MealType]repository.UserMealStatus, len(rows))
	for _, r := range rows {
		byMeal[r.MealType] = r
	}
	out := &UserDiningStatus{UserID: userID, Date: date, Meals: make([]MealStatus, 0, len(mealtime.All))}
	for _, m := range mealtime.All {
		ms := MealStatus{MealType: m, TotalAmount: decimal.Zero}
		if r, ok := byMeal[m]; ok {
			ms.Ordered = true
			ms.OrderID = r.OrderID
			ms.DiningStatus = r.DiningStatus
			ms.ActualDiningTime = r.ActualDiningTime
			ms.TotalAmount = r.TotalAmount
		}
		out.Meals = append(out.Meals, ms)
	}
	return out, nil
}

// MealStats aggregates one meal type within a department.
type MealStats struct {
	MealType     mealtime.MealType `json:"meal_type"`
	OrderedCount int               `json:"ordered_count"`
	DinedCount   int               `json:"dined_count"`
	PendingCount int               `json:"pending_count"`
}

// DepartmentStats is the per-department aggregation for one date.
type DepartmentStats struct {
	DepartmentID   uint64      `json:"department_id"`
	DepartmentName string      `json:"department_name"`
	Meals          []MealStats `json:"meals"`
}

// GetDepartmentConfirmationStats aggregates booked member counts per
// department and meal type for the given date.  OrderedCount counts
// every live booking, DinedCount the confirmed subset and PendingCount
// the remainder.  A zero departmentID covers all departments.
func (s *ReportService) GetDepartmentConfirmationStats(ctx context.Context, date string, departmentID uint64) ([]DepartmentStats, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.orders.DepartmentStats(ctx, date, departmentID)
	if err != nil {
		return nil, apperr.Internal("failed to load department stats")
	}

	// Rows arrive ordered by department then meal type; fold the
	// per-dining-status buckets into one MealStats per meal.
	out := make([]DepartmentStats, 0)
	index := make(map[uint64]int)
	for _, r := range rows {
		if r.DiningStatus == model.DiningCancelled {
			continue
		}
		i, ok := index[r.DepartmentID]
		if !ok {
			out = append(out, DepartmentStats{
				DepartmentID:   r.DepartmentID,
				DepartmentName: r.DepartmentName,
				Meals:          make([]MealStats, 0, len(mealtime.All)),
			})
			i = len(out) - 1
			index[r.DepartmentID] = i
		}
		dept := &out[i]
		var ms *MealStats
		for j := range dept.Meals {
			if dept.Meals[j].MealType == r.MealType {
				ms = &dept.Meals[j]
				break
			}
		}
		if ms == nil {
			dept.Meals = append(dept.Meals, MealStats{MealType: r.MealType})
			ms = &dept.Meals[len(dept.Meals)-1]
		}
		ms.OrderedCount += r.MemberCount
		if r.DiningStatus == model.DiningDined {
			ms.DinedCount += r.MemberCount
		} else {
			ms.PendingCount += r.MemberCount
		}
	}
	return out, nil
}

// ListOrdersInput filters the order history listing.
type ListOrdersInput struct {
	DiningDate   string
	MealType     string
	DepartmentID uint64
	Limit        int
}

// ListOrders returns matching orders, newest first, members included.
func (s *ReportService) ListOrders(ctx context.Context, in ListOrdersInput) ([]*model.Order, error) {
	f := repository.OrderFilter{DepartmentID: in.DepartmentID, Limit: in.Limit}
	if in.DiningDate != "" {
		date, err := mealtime.ParseDate(in.DiningDate)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		f.DiningDate = date
	}
	if in.MealType != "" {
		meal, err := mealtime.Parse(in.MealType)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		f.MealType = meal
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("failed to list orders")
	}
	return orders, nil
}

// resolveDate validates an explicit date or defaults to today in the
// canonical meal zone.
func (s *ReportService) resolveDate(date string) (string, error) {
	if date == "" {
		return s.schedule.Today(s.now()), nil
	}
	parsed, err := mealtime.ParseDate(date)
	if err != nil {
		return "", apperr.Validation(err.Error())
	}
	return parsed, nil
}
