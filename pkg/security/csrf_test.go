package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	mgr := NewCSRFTokenManager()

	token, err := mgr.GenerateToken("session-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, mgr.ValidateToken("session-1", token))
	assert.False(t, mgr.ValidateToken("session-1", "forged"))
	assert.False(t, mgr.ValidateToken("other-session", token))
}

func TestCSRFTokenInvalidate(t *testing.T) {
	mgr := NewCSRFTokenManager()

	token, err := mgr.GenerateToken("session-1")
	require.NoError(t, err)

	mgr.InvalidateToken("session-1")
	assert.False(t, mgr.ValidateToken("session-1", token))
}

func TestCSRFTokenRegenerateReplaces(t *testing.T) {
	mgr := NewCSRFTokenManager()

	first, err := mgr.GenerateToken("session-1")
	require.NoError(t, err)
	second, err := mgr.GenerateToken("session-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.False(t, mgr.ValidateToken("session-1", first))
	assert.True(t, mgr.ValidateToken("session-1", second))
}
