package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CSRFTokenManager issues per-session tokens for the unlock form. Tokens are
// held in memory; a restart just makes visitors reload the form.
type CSRFTokenManager struct {
	mu     sync.Mutex
	tokens map[string]csrfToken
}

type csrfToken struct {
	value   string
	expires time.Time
}

func NewCSRFTokenManager() *CSRFTokenManager {
	return &CSRFTokenManager{
		tokens: make(map[string]csrfToken),
	}
}

func (c *CSRFTokenManager) GenerateToken(sessionID string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)

	c.mu.Lock()
	c.tokens[sessionID] = csrfToken{
		value:   token,
		expires: time.Now().Add(15 * time.Minute),
	}
	c.cleanupExpiredLocked()
	c.mu.Unlock()

	return token, nil
}

func (c *CSRFTokenManager) ValidateToken(sessionID, providedToken string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	storedToken, exists := c.tokens[sessionID]
	if !exists {
		return false
	}
	if time.Now().After(storedToken.expires) {
		delete(c.tokens, sessionID)
		return false
	}

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(storedToken.value), []byte(providedToken)) == 1
}

func (c *CSRFTokenManager) InvalidateToken(sessionID string) {
	c.mu.Lock()
	delete(c.tokens, sessionID)
	c.mu.Unlock()
}

func (c *CSRFTokenManager) cleanupExpiredLocked() {
	now := time.Now()
	for sessionID, token := range c.tokens {
		if now.After(token.expires) {
			delete(c.tokens, sessionID)
		}
	}
}

// SessionID returns the visitor's session cookie, creating one if absent.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie("session_id")
	if err != nil || cookie.Value == "" {
		sessionID := uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     "session_id",
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   86400, // 24 hours
		})
		return sessionID
	}
	return cookie.Value
}
