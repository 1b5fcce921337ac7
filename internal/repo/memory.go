package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Skotchmaster/edu_shop/internal/models"
)

// MemoryRepo keeps every record in process memory behind one lock, so a
// cascade delete is never observed half done.
type MemoryRepo struct {
	mu sync.RWMutex

	accounts map[uint]models.Account
	emails   map[string]uint
	orders   map[uint]models.Order
	coupons  map[string]models.Coupon

	nextAccountID uint
	nextOrderID   uint

	now func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		accounts: make(map[uint]models.Account),
		emails:   make(map[string]uint),
		orders:   make(map[uint]models.Order),
		coupons:  make(map[string]models.Coupon),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Ping(context.Context) error { return nil }

func (r *MemoryRepo) CreateAccount(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.emails[a.Email]; ok {
		return ErrDuplicate
	}

	r.nextAccountID++
	a.ID = r.nextAccountID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}

	r.accounts[a.ID] = *a
	r.emails[a.Email] = a.ID
	return nil
}

func (r *MemoryRepo) GetAccount(_ context.Context, id uint) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryRepo) FindAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	a := r.accounts[id]
	return &a, nil
}

func (r *MemoryRepo) DeleteAccountCascade(_ context.Context, id uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return 0, ErrNotFound
	}

	var deleted int64
	for oid, o := range r.orders {
		if o.UserID == id {
			delete(r.orders, oid)
			deleted++
		}
	}
	delete(r.accounts, id)
	delete(r.emails, a.Email)

	return deleted, nil
}

func (r *MemoryRepo) CreateOrder(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[o.UserID]; !ok {
		return ErrNotFound
	}

	r.nextOrderID++
	o.ID = r.nextOrderID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}

	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *MemoryRepo) GetOrder(_ context.Context, id uint) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := o.Clone()
	return &c, nil
}

func (r *MemoryRepo) UpdateOrderStatus(_ context.Context, id uint, status models.OrderStatus, check StatusCheck) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if check != nil {
		if err := check(o.Status); err != nil {
			return nil, err
		}
	}

	o.Status = status
	r.orders[id] = o

	c := o.Clone()
	return &c, nil
}

func (r *MemoryRepo) DeleteOrder(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *MemoryRepo) ListOrdersByUser(_ context.Context, userID uint, opt ListOptions) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, opt), nil
}

func (r *MemoryRepo) ListOrders(_ context.Context, opt ListOptions) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedOrders()
	return page(all, opt), int64(len(all)), nil
}

func (r *MemoryRepo) Snapshot(context.Context) (*models.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &models.Snapshot{
		Accounts: r.sortedAccounts(),
		Orders:   r.sortedOrders(),
	}, nil
}

func (r *MemoryRepo) FindCoupon(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepo) UpsertCoupons(_ context.Context, coupons []models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range coupons {
		r.coupons[c.Code] = c
	}
	return nil
}

// sortedAccounts and sortedOrders expect r.mu to be held.
func (r *MemoryRepo) sortedAccounts() []models.Account {
	out := make([]models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryRepo) sortedOrders() []models.Order {
	out := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
