// Package auth owns the Spotify OAuth2 credential lifecycle.
//
// A single Manager instance holds the process-wide token state: the
// initial interactive authorization-code grant, silent refreshes, and
// expiry tracking with a safety margin. Concurrent callers that observe
// a stale token converge on one in-flight refresh or grant; two parallel
// OAuth exchanges would invalidate each other's tokens on the Spotify
// side.
//
// Tokens live in memory only and die with the process.
package auth
