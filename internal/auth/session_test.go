package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateLogin(t *testing.T) {
	gate := NewGate("admin", "s3cret", NewMemoryStore(time.Hour))
	ctx := context.Background()

	session, err := gate.Login(ctx, "admin", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
}

func TestGateLoginRejectsBadCredentials(t *testing.T) {
	gate := NewGate("admin", "s3cret", NewMemoryStore(time.Hour))
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "wrong"},
		{"wrong username", "root", "s3cret"},
		{"both wrong", "root", "wrong"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.Login(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestGateCheckAndLogout(t *testing.T) {
	gate := NewGate("admin", "s3cret", NewMemoryStore(time.Hour))
	ctx := context.Background()

	session, err := gate.Login(ctx, "admin", "s3cret")
	require.NoError(t, err)

	assert.True(t, gate.Check(ctx, session.Token))
	assert.False(t, gate.Check(ctx, "no-such-token"))
	assert.False(t, gate.Check(ctx, ""))

	require.NoError(t, gate.Logout(ctx, session.Token))
	assert.False(t, gate.Check(ctx, session.Token))

	// Logging out an unknown or empty token is a no-op.
	assert.NoError(t, gate.Logout(ctx, "no-such-token"))
	assert.NoError(t, gate.Logout(ctx, ""))
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	got, err := store.Get(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, got)

	time.Sleep(20 * time.Millisecond)

	got, err = store.Get(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, got, "expired session must read as absent")
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}
