package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAppBusy means another driver command currently holds the lock for the
// same app in the same namespace.
var ErrAppBusy = errors.New("another operation is in progress for this app")

// appLockTTL bounds how long a crashed holder can keep an app locked.
const appLockTTL = 5 * time.Minute

// Lua script for atomic lock acquisition. Returns 1 when the lock was
// acquired, 0 when another holder owns it. The TTL ensures cleanup if the
// holder crashes before releasing.
const acquireLockScript = `
if redis.call('SETNX', KEYS[1], ARGV[1]) == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
    return 1
end
return 0
`

// Lua script for lock release. Only the holder that acquired the lock may
// release it; a stale holder whose TTL already expired is a no-op.
const releaseLockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// AcquireAppLock takes the per-app lock for a namespace/app pair. holder
// identifies the acquiring command instance and must be passed back to
// ReleaseAppLock. Fails with ErrAppBusy when the lock is held.
func (c *Client) AcquireAppLock(ctx context.Context, namespace, appName, holder string) error {
	key := AppLockKey(namespace, appName)

	result, err := c.client.Eval(ctx, acquireLockScript, []string{key}, holder, appLockTTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to acquire app lock %s: %w", key, err)
	}
	if result == 0 {
		return ErrAppBusy
	}
	return nil
}

// ReleaseAppLock releases a lock previously acquired by holder.
func (c *Client) ReleaseAppLock(ctx context.Context, namespace, appName, holder string) error {
	key := AppLockKey(namespace, appName)

	if _, err := c.client.Eval(ctx, releaseLockScript, []string{key}, holder).Result(); err != nil {
		return fmt.Errorf("failed to release app lock %s: %w", key, err)
	}
	return nil
}
