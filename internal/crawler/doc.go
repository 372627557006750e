// Package crawler discovers leagues by walking the league/user graph.
//
// # Architecture
//
// The graph is bipartite: a league lists its users and a user lists the
// leagues they play in. The Crawler alternates between the two sides in
// cycles, each made of two phases:
//
//   - Phase A expands pending users into leagues until the number of
//     pending leagues reaches the per-cycle cap
//   - Phase B drains every pending league into the discovered table and
//     collects its users
//
// The cap bounds how many leagues a cycle ingests, so every cycle ends in a
// checkpoint of manageable size. A crawl finishes when both frontiers are
// empty.
//
// # Concurrency
//
// Fetches may run on a bounded worker pool. Every result is merged back into
// the FrontierState by the goroutine that called RunCycle, so the state is
// never shared between goroutines.
//
// # Failures
//
// A failed fetch is logged and skipped. A user whose league list could not
// be fetched stays queried; a league whose users could not be fetched stays
// discovered. Only context cancellation aborts a cycle.
//
// # Usage
//
//	c := crawler.New(client, crawler.WithCap(1000), crawler.WithWorkers(4))
//	err := c.Run(ctx, state, func(ctx context.Context, s *model.FrontierState, st crawler.CycleStats) error {
//		_, err := store.Save(ctx, s)
//		return err
//	})
package crawler
