package auth

import "context"

// ScopeAdmin authorizes status transitions, completion toggles, and the
// administrative read paths.
const ScopeAdmin = "admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
// UserID links the key to the staff user recorded as the audit actor.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// HasScope reports whether the key carries the given scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
