package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fixedClock(t time.Time) (*time.Time, func() time.Time) {
	cur := t
	return &cur, func() time.Time { return cur }
}

func TestIssueAndResolve(t *testing.T) {
	now, clock := fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	iss, err := NewIssuer("secret", "HS256", 30*time.Minute, WithClock(clock))
	require.NoError(t, err)

	tok, err := iss.Issue("a@x.com")
	require.NoError(t, err)
	require.Equal(t, now.Add(30*time.Minute), tok.ExpiresAt)

	claims, err := iss.Resolve(context.Background(), tok.Value)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", claims.Email)
	require.True(t, claims.ExpiresAt.Equal(tok.ExpiresAt))
}

func TestResolveExpired(t *testing.T) {
	now, clock := fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	iss, err := NewIssuer("secret", "HS256", time.Minute, WithClock(clock))
	require.NoError(t, err)

	tok, err := iss.Issue("a@x.com")
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)
	_, err = iss.Resolve(context.Background(), tok.Value)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestResolveRejectsTamperedAndForeignTokens(t *testing.T) {
	iss, err := NewIssuer("secret", "HS256", time.Minute)
	require.NoError(t, err)
	tok, err := iss.Issue("a@x.com")
	require.NoError(t, err)

	_, err = iss.Resolve(context.Background(), tok.Value+"x")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Resolve(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewIssuer("other-secret", "HS256", time.Minute)
	require.NoError(t, err)
	_, err = other.Resolve(context.Background(), tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)

	strict, err := NewIssuer("secret", "HS512", time.Minute)
	require.NoError(t, err)
	_, err = strict.Resolve(context.Background(), tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	iss, err := NewIssuer("secret", "HS384", time.Minute)
	require.NoError(t, err)
	tok, err := iss.Issue("a@x.com")
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(context.Background(), tok.Value))
	_, err = iss.Resolve(context.Background(), tok.Value)
	require.ErrorIs(t, err, ErrTokenRevoked)

	fresh, err := iss.Issue("a@x.com")
	require.NoError(t, err)
	require.NotEqual(t, tok.Value, fresh.Value)
	_, err = iss.Resolve(context.Background(), fresh.Value)
	require.NoError(t, err)
}

func TestNewIssuerValidation(t *testing.T) {
	_, err := NewIssuer("", "HS256", time.Minute)
	require.Error(t, err)

	_, err = NewIssuer("secret", "RS256", time.Minute)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw1", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "pw1", hash)
	require.True(t, CheckPassword(hash, "pw1"))
	require.False(t, CheckPassword(hash, "pw2"))
	require.False(t, CheckPassword("", "pw1"))

	_, err = HashPassword("", bcrypt.MinCost)
	require.Error(t, err)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordBytes+1), bcrypt.MinCost)
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestMemoryRevokerExpires(t *testing.T) {
	now, clock := fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r := NewMemoryRevoker()
	r.now = clock

	require.NoError(t, r.Revoke(context.Background(), "tok", time.Minute))
	revoked, err := r.IsRevoked(context.Background(), "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	*now = now.Add(2 * time.Minute)
	revoked, err = r.IsRevoked(context.Background(), "tok")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryRevokerSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now, clock := fixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r := NewMemoryRevoker()
	r.now = clock

	for i := 0; i < 50; i++ {
		require.NoError(t, r.Revoke(ctx, fmt.Sprintf("tok-%d", i), time.Minute))
	}
	require.Len(t, r.entries, 50)

	*now = now.Add(5 * time.Minute)
	require.NoError(t, r.Revoke(ctx, "fresh", time.Minute))
	require.Len(t, r.entries, 1)

	revoked, err := r.IsRevoked(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, revoked)
}
