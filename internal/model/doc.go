// Package model defines the core data structures shared by the crawler,
// the Sleeper client and the checkpoint store.
//
// This package contains the following main types:
//   - LeagueID and LeagueRecord: a league and its raw platform metadata
//   - UserID: an opaque participant identifier
//   - FrontierState: the resumable crawl state (both frontiers plus the
//     discovered and queried sets)
//   - Failure: a classified failure of an external API call
//
// Models live in their own package so that crawler, sleeper and checkpoint
// can share them without import cycles.
package model
