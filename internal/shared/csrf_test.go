package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFEnsureTokenIsStable(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}

	first, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = m.EnsureToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestCSRFVerifyToken(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}
	token, err := m.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	assert.NoError(t, m.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, token+"x"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), nil, token), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(context.Background(), &Session{ID: "other"}, token), ErrCSRFTokenMissing)
}

func TestCSRFRejectsForeignSignature(t *testing.T) {
	issuer := NewCSRFManager("secret")
	verifier := NewCSRFManager("rotated")
	sess := &Session{ID: "abc"}
	token, err := issuer.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.VerifyToken(context.Background(), sess, token), ErrCSRFTokenMismatch)

	// A token not signed by the current secret is reissued.
	reissued, err := verifier.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.NotEqual(t, token, reissued)
	assert.NoError(t, verifier.VerifyToken(context.Background(), sess, reissued))
}

func TestCSRFTokensAreUniquePerSession(t *testing.T) {
	m := NewCSRFManager("secret")
	a, err := m.EnsureToken(context.Background(), &Session{ID: "a"})
	require.NoError(t, err)
	b, err := m.EnsureToken(context.Background(), &Session{ID: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, ".")
}
