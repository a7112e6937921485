package middleware

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHasScopes(t *testing.T) {
	tests := []struct {
		name        string
		tokenScopes string
		required    []string
		expected    bool
	}{
		{"exact match", "shopfront:write", []string{"shopfront:write"}, true},
		{"subset", "shopfront:read shopfront:write", []string{"shopfront:read"}, true},
		{"missing", "shopfront:read", []string{"shopfront:write"}, false},
		{"multiple required", "shopfront:read shopfront:write", []string{"shopfront:read", "shopfront:write"}, true},
		{"one of several missing", "shopfront:read", []string{"shopfront:read", "shopfront:write"}, false},
		{"empty token scopes", "", []string{"shopfront:read"}, false},
		{"no required scopes", "anything", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hasScopes(tt.tokenScopes, tt.required))
		})
	}
}

func TestOwnerIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, uuid.Nil, GetOwnerIDFromContext(ctx))

	ownerID := uuid.New()
	ctx = WithOwnerID(ctx, ownerID)
	assert.Equal(t, ownerID, GetOwnerIDFromContext(ctx))
}

func TestSubContextDefault(t *testing.T) {
	assert.Equal(t, "", GetSubFromContext(context.Background()))
	assert.Equal(t, "", GetScopeFromContext(context.Background()))
}
