// Package checkpoint persists FrontierState snapshots in a SQLite file.
//
// A checkpoint directory holds a single checkpoint.db. Its tables mirror the
// four collections of a crawl:
//   - leagues: discovered leagues with their raw metadata, append-only
//   - queried_users: users whose leagues were fetched, append-only
//   - pending_leagues and pending_users: the frontiers, rewritten on save
//
// Every save runs in one transaction, so an interrupted save leaves the
// previous snapshot intact. The schema is managed by goose migrations
// embedded in the binary.
//
// We use modernc.org/sqlite, the CGO-free driver, so the binary
// cross-compiles without a C toolchain.
package checkpoint
