package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

// CanTransition reports whether the order state machine allows from -> to.
// Completed and cancelled orders are final.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService is the order ledger.
type OrderService struct {
	Repo   repo.Repository
	Events EventSink
	Topics Topics

	now func() time.Time
}

func NewOrderService(r repo.Repository, events EventSink, topics Topics) *OrderService {
	return &OrderService{
		Repo:   r,
		Events: events,
		Topics: topics,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new pending order. The money fields must already satisfy
// total == max(0, sum(prices) - discountAmount) with the discount never
// exceeding the sum.
func (s *OrderService) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create")

	if err := validateOrder(o); err != nil {
		return nil, err
	}

	o.Status = models.OrderStatusPending
	o.CreatedAt = s.now()

	if err := s.Repo.CreateOrder(ctx, o); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("create_order_error", "status", 401, "reason", "account gone", "user_id", o.UserID)
			return nil, fmt.Errorf("%w: account %d", ErrUnauthenticated, o.UserID)
		}
		l.Error("create_order_error", "status", 500, "reason", "cannot store order", "error", err)
		return nil, err
	}

	ev := newOrderEvent(EventOrderCreated, o, o.CreatedAt)
	info := o.CustomerInfo
	ev.CustomerInfo = &info
	ev.Items = append([]models.LineItem(nil), o.Items...)
	if !emit(s.Events, s.Topics.Orders, orderKey(o.ID), ev) {
		l.Warn("order_event_dropped", "order_id", o.ID, "type", EventOrderCreated)
	}

	l.Info("create_order_success", "order_id", o.ID, "user_id", o.UserID, "total", o.Total.String())
	return o, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("order %d", id))
	}
	return o, nil
}

// UpdateStatus sets any of the four statuses regardless of the current one.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	return s.setStatus(ctx, id, status, nil)
}

// Transition sets status only when the state machine allows it.
func (s *OrderService) Transition(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	return s.setStatus(ctx, id, status, func(current models.OrderStatus) error {
		if !CanTransition(current, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
		}
		return nil
	})
}

func (s *OrderService) setStatus(ctx context.Context, id uint, status models.OrderStatus, check repo.StatusCheck) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.update_status", "order_id", id)

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	o, err := s.Repo.UpdateOrderStatus(ctx, id, status, check)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("order %d", id))
	}

	emit(s.Events, s.Topics.Orders, orderKey(o.ID), newOrderEvent(EventOrderStatusUpdated, o, s.now()))

	l.Info("update_status_success", "new_status", status)
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "order.delete", "order_id", id)

	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return notFound(err, fmt.Sprintf("order %d", id))
	}
	if err := s.Repo.DeleteOrder(ctx, id); err != nil {
		return notFound(err, fmt.Sprintf("order %d", id))
	}

	emit(s.Events, s.Topics.Orders, orderKey(id), newOrderEvent(EventOrderDeleted, o, s.now()))

	l.Info("delete_order_success")
	return nil
}

// ListByUser returns the user's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return s.Repo.ListOrdersByUser(ctx, userID, repo.ListOptions{})
}

// ListAll returns the ledger in creation order. Zero options return every order.
func (s *OrderService) ListAll(ctx context.Context, opt repo.ListOptions) ([]models.Order, int64, error) {
	return s.Repo.ListOrders(ctx, opt)
}

func validateOrder(o *models.Order) error {
	if o == nil {
		return fmt.Errorf("%w: order is required", ErrValidation)
	}
	if o.UserID == 0 {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: items required", ErrValidation)
	}

	sum := decimal.Zero
	for i, it := range o.Items {
		if it.Name == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrValidation, i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: items[%d].price must be >= 0", ErrValidation, i)
		}
		sum = sum.Add(it.Price)
	}

	if o.DiscountAmount.IsNegative() || o.DiscountAmount.GreaterThan(sum) {
		return fmt.Errorf("%w: discountAmount must be between 0 and %s", ErrValidation, sum.String())
	}
	if want := floorAtZero(sum.Sub(o.DiscountAmount)); !o.Total.Equal(want) {
		return fmt.Errorf("%w: total %s does not match %s", ErrValidation, o.Total.String(), want.String())
	}
	if o.DiscountAmount.IsPositive() != (o.CouponCode != nil) {
		return fmt.Errorf("%w: couponCode and discountAmount must be set together", ErrValidation)
	}
	return nil
}

func orderKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
