// Package accounts implements demo login and signup for the admin board.
package accounts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	feedbackDomain "github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/identity/domain"
)

// DefaultLatency mimics a remote auth call.
const DefaultLatency = time.Second

// Service authenticates against the stored account list.
type Service struct {
	repo    domain.AccountRepository
	latency time.Duration
	seq     *feedbackDomain.Sequence
	logger  *slog.Logger

	mu sync.Mutex
}

// NewService creates a service. A zero or negative latency disables the delay.
func NewService(repo domain.AccountRepository, latency time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		latency: latency,
		seq:     feedbackDomain.ProcessSequence(),
		logger:  logger,
	}
}

// Login returns the user matching email and password.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	if err := s.wait(ctx); err != nil {
		return domain.User{}, err
	}

	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, a := range accounts {
		if a.Email == normalized && a.PasswordMatches(password) {
			s.logger.InfoContext(ctx, "user logged in", "user_id", a.ID)
			return a.User(), nil
		}
	}
	return domain.User{}, domain.ErrInvalidCredentials
}

// Signup stores a new account with the user role and returns it.
func (s *Service) Signup(ctx context.Context, email, password, name string) (domain.User, error) {
	if err := s.wait(ctx); err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, id := s.seq.Next()
	account, err := domain.NewAccount(id, email, password, name)
	if err != nil {
		return domain.User{}, err
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, a := range accounts {
		if a.Email == account.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}

	if err := s.repo.SaveAll(ctx, append(accounts, account)); err != nil {
		return domain.User{}, err
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", account.ID)
	return account.User(), nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
