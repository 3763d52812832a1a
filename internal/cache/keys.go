package cache

import "fmt"

// RateLimitKey namespaces a rate limit counter by limiter scope and caller identity.
func RateLimitKey(scope, id string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, id)
}
