package redisclient

import "fmt"

// RedisPrefix is the prefix for all Redis keys used by the driver
const RedisPrefix = "kubeshell:"

// AppLockKey returns the Redis key for the per-app deployment lock
func AppLockKey(namespace, appName string) string {
	return fmt.Sprintf("%slock:%s:%s", RedisPrefix, namespace, appName)
}
