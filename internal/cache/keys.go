package cache

import "fmt"

func RenderStatusKey(shotstackJobID string) string {
	return fmt.Sprintf("render:status:%s", shotstackJobID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
