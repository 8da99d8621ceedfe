package services

import (
	"testing"
	"time"

	"bookshelf/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: "u1", Username: "alice", Role: models.RoleAdmin}

	raw, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.NotEmpty(t, claims.Id)
	assert.Equal(t, claims.IssuedAt+int64(time.Hour/time.Second), claims.ExpiresAt)
}

func TestTokenIssuer_UniquePerIssue(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	fixed := time.Now()
	issuer.now = func() time.Time { return fixed }
	user := &models.User{Username: "alice", Role: models.RoleUser}

	a, err := issuer.Issue(user)
	require.NoError(t, err)
	b, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, err := issuer.Issue(&models.User{Username: "alice"})
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	raw, err := NewTokenIssuer("other", time.Hour).Issue(&models.User{Username: "alice"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer("secret", time.Hour).Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
