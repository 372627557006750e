package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/leaguecrawl/internal/model"
)

// DefaultCap is the default per-cycle league cap.
const DefaultCap = 1000

// API is the subset of the Sleeper client the crawler depends on.
type API interface {
	// FetchUserLeagues returns the leagues a user plays in.
	FetchUserLeagues(ctx context.Context, userID model.UserID) ([]model.LeagueRecord, error)

	// FetchLeagueInfo returns the metadata of a league.
	FetchLeagueInfo(ctx context.Context, id model.LeagueID) (model.LeagueRecord, error)

	// FetchLeagueUsers returns the users of a league.
	FetchLeagueUsers(ctx context.Context, id model.LeagueID) ([]model.UserID, error)
}

// Phase identifies the half of a cycle being executed.
type Phase int

const (
	// PhaseUsers expands pending users into leagues.
	PhaseUsers Phase = iota
	// PhaseLeagues expands pending leagues into users.
	PhaseLeagues
)

// String returns the phase name used in logs and progress lines.
func (p Phase) String() string {
	if p == PhaseLeagues {
		return "league queue"
	}
	return "user queue"
}

// Progress is reported after every merged batch.
type Progress struct {
	Phase Phase

	// Done and Total count the items processed in this phase. Total is the
	// queue length when the phase started.
	Done  int
	Total int

	// Found is the number of pending leagues during PhaseUsers and the
	// number of users collected so far during PhaseLeagues.
	Found int
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	// Cycle is the 1-based index of the cycle within Run. RunCycle leaves it 0.
	Cycle int

	UsersQueried int
	UserFailures int

	LeaguesDiscovered int
	LeagueFailures    int
	InfoFailures      int

	// UsersFound is the number of user ids collected in Phase B before
	// deduplication; DuplicateUsers is how many the bulk pass removed.
	UsersFound     int
	DuplicateUsers int

	// Counts is the state after the cycle.
	Counts model.Counts

	Elapsed time.Duration
}

// Crawler drives the two-phase discovery cycle.
type Crawler struct {
	api      API
	cap      int
	workers  int
	logger   *slog.Logger
	progress func(Progress)
	now      func() time.Time
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithCap sets the per-cycle league cap. Phase A stops popping users once
// this many leagues are pending. Values below 1 are ignored.
func WithCap(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.cap = n
		}
	}
}

// WithWorkers sets how many fetches run concurrently. Values below 1 are
// ignored.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger for fetch failures and cycle summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every merged batch.
// It runs on the crawling goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// New creates a Crawler backed by api.
func New(api API, opts ...Option) *Crawler {
	c := &Crawler{
		api:     api,
		cap:     DefaultCap,
		workers: 1,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes cycles until both frontiers are empty at the start of a
// cycle. afterCycle, if set, runs after every cycle; an error from it stops
// the crawl and is returned.
//
// A cancelled context stops the crawl in the middle of a cycle. The state is
// then partially advanced and should not be persisted.
func (c *Crawler) Run(ctx context.Context, state *model.FrontierState, afterCycle func(context.Context, *model.FrontierState, CycleStats) error) error {
	for cycle := 1; !state.Done(); cycle++ {
		stats, err := c.RunCycle(ctx, state)
		if err != nil {
			return err
		}
		stats.Cycle = cycle

		c.logger.Info("cycle complete",
			"cycle", cycle,
			"users_queried", stats.UsersQueried,
			"leagues_discovered", stats.LeaguesDiscovered,
			"user_failures", stats.UserFailures,
			"league_failures", stats.LeagueFailures,
			"pending_leagues", stats.Counts.PendingLeagues,
			"pending_users", stats.Counts.PendingUsers,
			"discovered", stats.Counts.Discovered,
			"elapsed", stats.Elapsed,
		)

		if afterCycle != nil {
			if err := afterCycle(ctx, state, stats); err != nil {
				return fmt.Errorf("cycle %d: %w", cycle, err)
			}
		}
	}
	return nil
}

// RunCycle executes Phase A followed by Phase B once.
func (c *Crawler) RunCycle(ctx context.Context, state *model.FrontierState) (CycleStats, error) {
	start := c.now()
	var stats CycleStats

	if err := c.expandUsers(ctx, state, &stats); err != nil {
		return stats, err
	}
	if err := c.expandLeagues(ctx, state, &stats); err != nil {
		return stats, err
	}

	stats.Counts = state.Counts()
	stats.Elapsed = c.now().Sub(start)
	return stats, nil
}

type userResult struct {
	id      model.UserID
	leagues []model.LeagueRecord
	err     error
}

// expandUsers is Phase A. The cap is checked against the merged state before
// every batch, so with a single worker no user is popped once the cap is
// reached.
func (c *Crawler) expandUsers(ctx context.Context, state *model.FrontierState, stats *CycleStats) error {
	total := state.PendingUserCount()
	done := 0

	for state.PendingUserCount() > 0 && state.PendingLeagueCount() < c.cap {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := make([]model.UserID, 0, c.workers)
		for len(batch) < c.workers {
			id, ok := state.PopUser()
			if !ok {
				break
			}
			batch = append(batch, id)
		}
		if len(batch) == 0 {
			break
		}

		results, err := fetchAll(ctx, c.workers, batch, func(ctx context.Context, id model.UserID) userResult {
			leagues, err := c.api.FetchUserLeagues(ctx, id)
			return userResult{id: id, leagues: leagues, err: err}
		})
		if err != nil {
			return err
		}

		for _, r := range results {
			done++
			stats.UsersQueried++
			if r.err != nil {
				stats.UserFailures++
				c.logger.Warn("failed to fetch user leagues",
					"user", r.id, "kind", model.FailureKindOf(r.err).String(), "error", r.err)
				continue
			}
			for _, rec := range r.leagues {
				state.AddPendingLeague(rec.ID, rec.Metadata)
			}
		}

		c.report(Progress{Phase: PhaseUsers, Done: done, Total: total, Found: state.PendingLeagueCount()})
	}
	return nil
}

type leagueResult struct {
	record  model.LeagueRecord
	users   []model.UserID
	infoErr error
	err     error
}

// expandLeagues is Phase B. Every pending league is processed regardless of
// the cap. Pending users are deduplicated once at the end.
func (c *Crawler) expandLeagues(ctx context.Context, state *model.FrontierState, stats *CycleStats) error {
	pending := state.PendingLeagues()
	total := len(pending)

	for offset := 0; offset < total; offset += c.workers {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := pending[offset:min(offset+c.workers, total)]

		results, err := fetchAll(ctx, c.workers, batch, c.expandLeague)
		if err != nil {
			return err
		}

		for _, r := range results {
			state.Discover(r.record)
			stats.LeaguesDiscovered++

			if r.infoErr != nil {
				stats.InfoFailures++
				c.logger.Warn("failed to fetch league info",
					"league", r.record.ID, "kind", model.FailureKindOf(r.infoErr).String(), "error", r.infoErr)
			}
			if r.err != nil {
				stats.LeagueFailures++
				c.logger.Warn("failed to fetch league users",
					"league", r.record.ID, "kind", model.FailureKindOf(r.err).String(), "error", r.err)
				continue
			}
			stats.UsersFound += len(r.users)
			state.AppendPendingUsers(r.users...)
		}

		c.report(Progress{Phase: PhaseLeagues, Done: offset + len(batch), Total: total, Found: stats.UsersFound})
	}

	stats.DuplicateUsers = state.DedupPendingUsers()
	return nil
}

// expandLeague fills missing metadata and fetches the league's users.
func (c *Crawler) expandLeague(ctx context.Context, rec model.LeagueRecord) leagueResult {
	r := leagueResult{record: rec}
	if !rec.HasMetadata() {
		info, err := c.api.FetchLeagueInfo(ctx, rec.ID)
		if err != nil {
			r.infoErr = err
		} else {
			r.record.Metadata = info.Metadata
		}
	}
	r.users, r.err = c.api.FetchLeagueUsers(ctx, rec.ID)
	return r
}

func (c *Crawler) report(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}

// fetchAll applies fn to every item with at most workers running at once and
// returns the results in input order. It fails only when ctx is cancelled.
func fetchAll[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) R) ([]R, error) {
	results := make([]R, len(items))
	if workers <= 1 || len(items) == 1 {
		for i, item := range items {
			results[i] = fn(ctx, item)
		}
		return results, ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}
