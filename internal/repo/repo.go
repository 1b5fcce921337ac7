package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/edu_shop/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ListOptions bounds a listing. A non-positive Limit returns every row.
type ListOptions struct {
	Limit  int
	Offset int
}

// StatusCheck inspects the current status of an order before it is replaced.
// Returning an error aborts the update.
type StatusCheck func(current models.OrderStatus) error

// Repository owns accounts, orders and the coupon table.
type Repository interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// DeleteAccountCascade removes the account and all of its orders in one
	// step and reports how many orders went with it.
	DeleteAccountCascade(ctx context.Context, id uint) (int64, error)

	// CreateOrder fails with ErrNotFound unless the owning account exists
	// at the moment the order is written.
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus, check StatusCheck) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uint) error
	// ListOrdersByUser returns newest orders first.
	ListOrdersByUser(ctx context.Context, userID uint, opt ListOptions) ([]models.Order, error)
	ListOrders(ctx context.Context, opt ListOptions) ([]models.Order, int64, error)

	Snapshot(ctx context.Context) (*models.Snapshot, error)

	FindCoupon(ctx context.Context, code string) (*models.Coupon, error)
	UpsertCoupons(ctx context.Context, coupons []models.Coupon) error
}

func page[T any](rows []T, opt ListOptions) []T {
	if opt.Offset > 0 {
		if opt.Offset >= len(rows) {
			return []T{}
		}
		rows = rows[opt.Offset:]
	}
	if opt.Limit > 0 && opt.Limit < len(rows) {
		rows = rows[:opt.Limit]
	}
	return rows
}
