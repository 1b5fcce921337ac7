package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
)

type Stats struct {
	TotalOrders    int                        `json:"totalOrders"`
	TotalRevenue   decimal.Decimal            `json:"totalRevenue"`
	TotalUsers     int                        `json:"totalUsers"`
	PendingOrders  int                        `json:"pendingOrders"`
	OrdersByStatus map[models.OrderStatus]int `json:"ordersByStatus"`
}

// ReportService derives dashboard figures on demand from one consistent
// snapshot of the ledger and the registry.
type ReportService struct {
	Repo repo.Repository
}

func NewReportService(r repo.Repository) *ReportService {
	return &ReportService{Repo: r}
}

// Stats counts revenue over every order, cancelled ones included.
func (s *ReportService) Stats(ctx context.Context) (*Stats, error) {
	snap, err := s.Repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeStats(snap), nil
}

func (s *ReportService) EnrichUsers(ctx context.Context) ([]models.AccountSummary, error) {
	snap, err := s.Repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return EnrichAccounts(snap.Accounts, snap.Orders), nil
}

func ComputeStats(snap *models.Snapshot) *Stats {
	st := &Stats{
		TotalOrders:  len(snap.Orders),
		TotalRevenue: decimal.Zero,
		TotalUsers:   len(snap.Accounts),
		OrdersByStatus: map[models.OrderStatus]int{
			models.OrderStatusPending:    0,
			models.OrderStatusProcessing: 0,
			models.OrderStatusCompleted:  0,
			models.OrderStatusCancelled:  0,
		},
	}

	for _, o := range snap.Orders {
		st.TotalRevenue = st.TotalRevenue.Add(o.Total)
		st.OrdersByStatus[o.Status]++
	}
	st.PendingOrders = st.OrdersByStatus[models.OrderStatusPending]
	return st
}

// EnrichAccounts joins orders onto accounts by user id. Orders whose account
// is gone are ignored.
func EnrichAccounts(accounts []models.Account, orders []models.Order) []models.AccountSummary {
	out := make([]models.AccountSummary, len(accounts))
	idx := make(map[uint]int, len(accounts))
	for i, a := range accounts {
		out[i] = models.AccountSummary{Account: a, TotalSpent: decimal.Zero}
		idx[a.ID] = i
	}

	for _, o := range orders {
		i, ok := idx[o.UserID]
		if !ok {
			continue
		}
		out[i].OrderCount++
		out[i].TotalSpent = out[i].TotalSpent.Add(o.Total)
	}
	return out
}
