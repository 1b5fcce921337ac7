package repo

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/pkg/db"
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(models.AllModels()...)
}

func (r *GormRepo) Ping(ctx context.Context) error {
	return db.Ping(ctx, r.DB)
}

func (r *GormRepo) CreateAccount(ctx context.Context, a *models.Account) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", a.Email).FirstOrCreate(a)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *GormRepo) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormRepo) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *GormRepo) DeleteAccountCascade(ctx context.Context, id uint) (int64, error) {
	var deleted int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Account
		if err := r.forUpdate(tx).First(&a, id).Error; err != nil {
			return translate(err)
		}

		res := tx.Where("user_id = ?", id).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected

		return tx.Delete(&a).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// conflicts with the FOR UPDATE taken by DeleteAccountCascade
		var a models.Account
		if err := r.forShare(tx).Select("id").First(&a, o.UserID).Error; err != nil {
			return translate(err)
		}
		return tx.Create(o).Error
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus, check StatusCheck) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.forUpdate(tx).First(&o, id).Error; err != nil {
			return translate(err)
		}
		if check != nil {
			if err := check(o.Status); err != nil {
				return err
			}
		}
		if err := tx.Model(&o).Update("status", status).Error; err != nil {
			return err
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) DeleteOrder(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Order{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint, opt ListOptions) ([]models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	orders := []models.Order{}
	if err := paginate(q.Order("created_at DESC").Order("id DESC"), opt).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, opt ListOptions) ([]models.Order, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	q := r.DB.WithContext(ctx).Order("id ASC")
	if err := paginate(q, opt).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormRepo) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Accounts: []models.Account{}, Orders: []models.Order{}}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&snap.Accounts).Error; err != nil {
			return err
		}
		return tx.Order("id ASC").Find(&snap.Orders).Error
	}, r.snapshotTxOptions())
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *GormRepo) FindCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *GormRepo) UpsertCoupons(ctx context.Context, coupons []models.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&coupons).Error
}

func (r *GormRepo) isPostgres() bool {
	return r.DB.Dialector.Name() == "postgres"
}

// forUpdate takes a row lock where the dialect has one. SQLite serialises
// writers on its own.
func (r *GormRepo) forUpdate(tx *gorm.DB) *gorm.DB {
	if r.isPostgres() {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *GormRepo) forShare(tx *gorm.DB) *gorm.DB {
	if r.isPostgres() {
		return tx.Clauses(clause.Locking{Strength: "SHARE"})
	}
	return tx
}

func (r *GormRepo) snapshotTxOptions() *sql.TxOptions {
	if r.isPostgres() {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func paginate(q *gorm.DB, opt ListOptions) *gorm.DB {
	if opt.Limit > 0 {
		q = q.Limit(opt.Limit)
	}
	if opt.Offset > 0 {
		q = q.Offset(opt.Offset)
	}
	return q
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
