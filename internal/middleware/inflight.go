package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LockStore is the subset of *redis.Client the in-flight guard needs.
type LockStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the lock only while it still holds this request's
// token, so a request that outlived InFlightTTL cannot drop a newer lock.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// InFlightTTL bounds how long a crashed request can hold its lock.
const InFlightTTL = 3 * time.Minute

// InFlightGuard lets each user run one request per action at a time. A second
// request for the same action is rejected with 409 while the first runs.
// Redis failures let the request through.
func InFlightGuard(store LockStore, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := "inflight:" + userID + ":" + action
			token := uuid.NewString()
			acquired, err := store.SetNX(r.Context(), key, token, InFlightTTL).Result()
			if err != nil {
				log.Printf("In-flight guard unavailable for %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeError(w, http.StatusConflict, "CONFLICT", "A request for this action is already in progress", r)
				return
			}

			defer func() {
				// The request context may already be cancelled.
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
					log.Printf("Failed to release in-flight lock %s: %v", key, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
