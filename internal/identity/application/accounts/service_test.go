package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/internal/identity/domain"
	"github.com/felixgeelhaar/featureboard/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func newService(latency time.Duration) *Service {
	repo := persistence.NewSlotAccountRepository(slots.NewMemoryStore(), observability.Discard())
	return NewService(repo, latency, observability.Discard())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(0)

	u, err := svc.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "1", Email: "admin@example.com", Name: "Admin User", Role: domain.RoleAdmin}, u)

	_, err = svc.Login(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "not-an-email", "admin123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	svc := newService(0)

	u, err := svc.Signup(ctx, "new@example.com", "secret", "New Person")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEmpty(t, u.ID)

	logged, err := svc.Login(ctx, "new@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u, logged)

	_, err = svc.Signup(ctx, "USER@example.com", "x", "Dup")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.Signup(ctx, "bad", "x", "Bad")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestLatency(t *testing.T) {
	svc := newService(50 * time.Millisecond)

	start := time.Now()
	_, err := svc.Login(context.Background(), "user@example.com", "user123")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Login(ctx, "user@example.com", "user123")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatency_ZeroOrNegativeDisablesDelay(t *testing.T) {
	for _, latency := range []time.Duration{0, -time.Second} {
		svc := newService(latency)

		start := time.Now()
		_, err := svc.Login(context.Background(), "user@example.com", "user123")
		require.NoError(t, err, latency.String())
		assert.Less(t, time.Since(start), 500*time.Millisecond, latency.String())
	}
}
