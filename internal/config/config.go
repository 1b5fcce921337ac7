package config

import (
	"log"
	"strings"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/service"
	"github.com/Skotchmaster/edu_shop/pkg/config"
)

type ServiceConfig struct {
	config.Config
	CouponTable []models.Coupon
}

func Load() ServiceConfig {
	cfg := config.Load()

	config.MustNonEmpty(cfg.AdminEmail, "ADMIN_EMAIL")
	config.MustNonEmpty(cfg.AdminPassword, "ADMIN_PASSWORD")
	config.MustNonEmptyBytes(cfg.AdminJWTSecret, "ADMIN_JWT_SECRET")
	config.MustOneOf(cfg.StorageDriver, "STORAGE_DRIVER", "memory", "sqlite", "postgres")
	if cfg.StorageDriver == "postgres" {
		config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	}

	coupons, err := CouponTable(cfg.Coupons)
	if err != nil {
		log.Fatalf("invalid COUPONS: %v", err)
	}

	return ServiceConfig{Config: cfg, CouponTable: coupons}
}

// CouponTable parses raw, falling back to the built-in table when it is blank.
func CouponTable(raw string) ([]models.Coupon, error) {
	if strings.TrimSpace(raw) == "" {
		return service.DefaultCoupons(), nil
	}
	return service.ParseCoupons(raw)
}
