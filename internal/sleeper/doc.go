// Package sleeper is a client for the public Sleeper fantasy API
// (https://api.sleeper.app/v1) covering the endpoints the league crawler
// needs: league info, league users, user leagues and sport state.
//
// Every request waits on a ratelimit.Limiter first, runs under a per-call
// timeout and returns a *model.Failure on error. Rate-limited (429) and
// unavailable (503) responses are retried with exponential backoff; every
// other failure is returned to the caller on the first attempt.
//
// Payloads are not decoded into fixed structs. League objects are kept as
// raw JSON so that the crawler stores every field the platform returns, and
// the few fields the crawler needs (league_id, user_id) are read with gjson.
//
// # Usage
//
//	client, err := sleeper.NewClient(ratelimit.New(1000, 1), sleeper.WithSeason("2024"))
//	users, err := client.FetchLeagueUsers(ctx, leagueID)
package sleeper
