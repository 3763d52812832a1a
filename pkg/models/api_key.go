package models

import "time"

// APIKey authenticates ingestion and read traffic for one organization.
// The raw Key is only populated in the issuance response; listings carry KeyHint.
type APIKey struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Key       string    `json:"key,omitempty"`
	KeyHint   string    `json:"key_hint"`
	Scope     []string  `json:"scope"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// Redacted returns a copy of the key with the secret removed.
func (k APIKey) Redacted() APIKey {
	k.Key = ""
	return k
}
