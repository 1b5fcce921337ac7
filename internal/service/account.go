package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/edu_shop/internal/models"
	"github.com/Skotchmaster/edu_shop/internal/repo"
	"github.com/Skotchmaster/edu_shop/pkg/hash"
	"github.com/Skotchmaster/edu_shop/pkg/logging"
)

// AccountService is the account registry.
type AccountService struct {
	Repo   repo.Repository
	Events EventSink
	Topics Topics

	now func() time.Time
}

func NewAccountService(r repo.Repository, events EventSink, topics Topics) *AccountService {
	return &AccountService{
		Repo:   r,
		Events: events,
		Topics: topics,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account. Emails are unique exactly as typed.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "account.register")

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is malformed", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if errors.Is(err, hash.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, hash.MaxPasswordBytes)
	}
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	acc := &models.Account{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		CreatedAt:    s.now(),
	}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
		l.Error("register_error", "status", 500, "reason", "cannot store account", "error", err)
		return nil, err
	}

	emit(s.Events, s.Topics.Users, userKey(acc.ID), UserEvent{
		ID:         uuid.NewString(),
		Type:       EventUserRegistered,
		UserID:     acc.ID,
		Name:       acc.Name,
		Email:      acc.Email,
		OccurredAt: acc.CreatedAt,
	})

	l.Info("register_success", "user_id", acc.ID)
	return acc, nil
}

// Authenticate succeeds only when both email and password match one account.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	acc, err := s.Repo.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			hash.CheckMissing(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (s *AccountService) Get(ctx context.Context, id uint) (*models.Account, error) {
	acc, err := s.Repo.GetAccount(ctx, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return acc, nil
}

// ListAll returns accounts with their order count and total spent. Zero
// options return every account.
func (s *AccountService) ListAll(ctx context.Context, opt repo.ListOptions) ([]models.AccountSummary, int64, error) {
	snap, err := s.Repo.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}

	all := EnrichAccounts(snap.Accounts, snap.Orders)
	return pageSlice(all, opt), int64(len(all)), nil
}

// Delete removes the account together with every order it placed and
// returns how many orders were removed.
func (s *AccountService) Delete(ctx context.Context, id uint) (int64, error) {
	l := logging.FromContext(ctx).With("svc", "account.delete", "user_id", id)

	n, err := s.Repo.DeleteAccountCascade(ctx, id)
	if err != nil {
		return 0, notFound(err, fmt.Sprintf("user %d", id))
	}

	emit(s.Events, s.Topics.Users, userKey(id), UserEvent{
		ID:            uuid.NewString(),
		Type:          EventUserDeleted,
		UserID:        id,
		DeletedOrders: n,
		OccurredAt:    s.now(),
	})

	l.Info("delete_user_success", "deleted_orders", n)
	return n, nil
}

func userKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func pageSlice[T any](rows []T, opt repo.ListOptions) []T {
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
