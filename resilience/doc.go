// Package resilience wraps the adapter's network exchanges with retry,
// circuit breaking, rate limiting and concurrency limiting.
//
//   - Retry: exponential backoff (cenkalti/backoff) with a retry predicate
//   - CircuitBreaker: fail fast while Vault is unreachable (sony/gobreaker)
//   - RateLimiter: token bucket in front of Vault (golang.org/x/time/rate)
//   - Bulkhead: bound in-flight calls (golang.org/x/sync/semaphore)
//
// A Vault answer such as 403 or 404 is a successful exchange from the
// breaker's point of view; only transport failures and 5xx responses count
// against it.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("vault"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	err := cb.Execute(func() error {
//	    return rl.ExecuteWait(ctx, func() error {
//	        _, err := adapter.Get(ctx, "/v1/sys/health")
//	        return err
//	    })
//	})
package resilience
