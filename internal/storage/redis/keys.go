package redis

import (
	"fmt"
)

// Key prefix for all client session data
const keyPrefix = "cardroom"

// sessionKey returns the Redis key for a session-scoped value
func sessionKey(namespace, key string) string {
	return fmt.Sprintf("%s:session:%s:%s", keyPrefix, namespace, key)
}
