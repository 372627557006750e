package sleeper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/nao1215/leaguecrawl/internal/model"
)

// Operation names used in failures and logs.
const (
	opLeagueInfo  = "league info"
	opLeagueUsers = "league users"
	opUserLeagues = "user leagues"
	opSportState  = "sport state"
)

// SportState is the subset of /state/{sport} the crawler uses.
type SportState struct {
	Season       string `json:"season"`
	LeagueSeason string `json:"league_season"`
	SeasonType   string `json:"season_type"`
	Week         int    `json:"week"`
}

// ActiveSeason returns the season leagues are currently created in.
func (s SportState) ActiveSeason() string {
	if s.LeagueSeason != "" {
		return s.LeagueSeason
	}
	return s.Season
}

// FetchLeagueInfo fetches the metadata of a single league.
func (c *Client) FetchLeagueInfo(ctx context.Context, id model.LeagueID) (model.LeagueRecord, error) {
	body, err := c.get(ctx, opLeagueInfo, c.endpoint("league", id.String()))
	if err != nil {
		return model.LeagueRecord{}, err
	}
	if isNull(body) {
		return model.LeagueRecord{}, newFailure(opLeagueInfo, 0, ErrNullBody)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return model.LeagueRecord{}, newFailure(opLeagueInfo, 0, ErrMalformedBody)
	}
	return model.LeagueRecord{ID: id, Metadata: json.RawMessage(body)}, nil
}

// FetchLeagueUsers returns the ids of every user participating in a league.
func (c *Client) FetchLeagueUsers(ctx context.Context, id model.LeagueID) ([]model.UserID, error) {
	body, err := c.get(ctx, opLeagueUsers, c.endpoint("league", id.String(), "users"))
	if err != nil {
		return nil, err
	}
	if isNull(body) {
		return nil, newFailure(opLeagueUsers, 0, ErrNullBody)
	}
	root := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !root.IsArray() {
		return nil, newFailure(opLeagueUsers, 0, ErrMalformedBody)
	}

	ids := root.Get("#.user_id").Array()
	users := make([]model.UserID, 0, len(ids))
	for _, v := range ids {
		if s := v.String(); s != "" {
			users = append(users, model.UserID(s))
		}
	}
	return users, nil
}

// FetchUserLeagues returns every league the user plays in for the configured
// sport and season. Elements without a valid league_id are skipped.
func (c *Client) FetchUserLeagues(ctx context.Context, userID model.UserID) ([]model.LeagueRecord, error) {
	season, err := c.Season(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, opUserLeagues, c.endpoint("user", string(userID), "leagues", c.sport, season))
	if err != nil {
		return nil, err
	}
	if isNull(body) {
		return nil, newFailure(opUserLeagues, 0, ErrNullBody)
	}
	root := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !root.IsArray() {
		return nil, newFailure(opUserLeagues, 0, ErrMalformedBody)
	}

	var leagues []model.LeagueRecord
	root.ForEach(func(_, v gjson.Result) bool {
		id, err := model.ParseLeagueID(v.Get("league_id").String())
		if err != nil {
			c.logger.Debug("skipping league without valid id", "user", userID, "error", err)
			return true
		}
		leagues = append(leagues, model.LeagueRecord{ID: id, Metadata: json.RawMessage(v.Raw)})
		return true
	})
	return leagues, nil
}

// FetchSportState returns the platform's current season information.
func (c *Client) FetchSportState(ctx context.Context) (SportState, error) {
	body, err := c.get(ctx, opSportState, c.endpoint("state", c.sport))
	if err != nil {
		return SportState{}, err
	}
	if isNull(body) {
		return SportState{}, newFailure(opSportState, 0, ErrNullBody)
	}

	var state SportState
	if err := json.Unmarshal(body, &state); err != nil {
		return SportState{}, newFailure(opSportState, 0, fmt.Errorf("%w: %w", ErrMalformedBody, err))
	}
	if state.ActiveSeason() == "" {
		return SportState{}, newFailure(opSportState, 0, fmt.Errorf("%w: no season", ErrMalformedBody))
	}
	return state, nil
}

func isNull(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// newFailure classifies a failed attempt. A status of zero with ErrNullBody
// is a NotFound; other zero-status failures are Unclassified.
func newFailure(op string, status int, cause error) *model.Failure {
	kind := model.ClassifyStatus(status)
	if status == 0 && errors.Is(cause, ErrNullBody) {
		kind = model.FailureNotFound
	}
	return &model.Failure{Kind: kind, Op: op, Status: status, Err: cause}
}

// asFailure makes sure every error leaving the client is a *model.Failure.
func asFailure(op string, err error) error {
	var f *model.Failure
	if errors.As(err, &f) {
		return f
	}
	return &model.Failure{Kind: model.FailureUnclassified, Op: op, Err: err}
}
