// Package ratelimit throttles outgoing XRPC requests.
//
// A single Limiter is shared by every worker of both crawl phases, so the
// configured rate is global to the process rather than per worker. Wait
// takes the call context, which means a per-call timeout or a cancelled crawl
// also ends the wait for a token.
//
//	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
