package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	orgIDKey        contextKey = "org_id"
	apiKeyIDKey     contextKey = "api_key_id"
	apiKeyScopesKey contextKey = "api_key_scopes"
)

func SetOrgID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, orgIDKey, id)
}

func GetOrgID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(orgIDKey).(string)
	return id, ok && id != ""
}

func SetAPIKeyID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, apiKeyIDKey, id)
}

func GetAPIKeyID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(apiKeyIDKey).(string)
	return id, ok && id != ""
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}
