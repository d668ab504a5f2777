// Package governor serializes outbound remote calls against the remote
// service's rate limits.
//
// Calls are bucketed by coarse endpoint class ("search", "playback")
// rather than per exact endpoint; that approximates Spotify's actual
// rate-limit granularity cheaply. Each class keeps a next-allowed-at
// timestamp that only ever moves forward: a successful call pushes it by
// a short cooldown, a throttling rejection by a longer penalty window.
// The governor never retries on the caller's behalf; throttling is
// surfaced as a RateLimitedError carrying the retry-after delay so the
// caller keeps control of retry policy.
package governor
