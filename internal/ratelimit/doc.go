// Package ratelimit throttles outbound calls to a fixed budget of calls per
// minute.
//
// Two limiters implement the Limiter interface:
//   - Pacer spaces calls at least 60/callsPerMinute seconds apart, measured
//     from the start of the previous call, so request latency already spent
//     counts against the interval. It serves a single caller.
//   - Bucket is a token bucket (golang.org/x/time/rate) shared by a pool of
//     workers so that their combined rate stays within the budget.
//
// Callers must Wait immediately before every external API invocation.
package ratelimit
