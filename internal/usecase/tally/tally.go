package usecase_tally

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/dinevote/internal/model"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	MaxTrendDays = 30

	dateLayout = "2006-01-02"
)

type VoteSource interface {
	// Tally returns per-restaurant sums in first-vote order.
	Tally(ctx context.Context, roomCtx model.RoomContext) ([]model.TallyEntry, error)
	Events(ctx context.Context, roomCtx model.RoomContext, since time.Time) ([]model.VoteEvent, error)
}

type CandidateSource interface {
	Candidates(ctx context.Context, roomID uuid.UUID) ([]model.Candidate, error)
}

type Usecase struct {
	votes      VoteSource
	candidates CandidateSource
	now        func() time.Time
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) {
		u.now = now
	}
}

// WithCandidates breaks ties of room leaderboards by the order restaurants
// were proposed in the room.
func WithCandidates(c CandidateSource) Option {
	return func(u *Usecase) {
		u.candidates = c
	}
}

func New(votes VoteSource, opts ...Option) *Usecase {
	u := &Usecase{
		votes: votes,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Leaderboard ranks restaurants by summed votes. Room ties follow candidate
// order when candidates are known; everything else keeps first-vote order,
// so repeated queries over unchanged data return the same sequence.
func (u *Usecase) Leaderboard(ctx context.Context, roomCtx model.RoomContext, limit int) ([]model.LeaderboardEntry, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be 1..%d", model.ErrValidation, MaxLimit)
	}

	tally, err := u.votes.Tally(ctx, roomCtx)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}

	rank, err := u.candidateRank(ctx, roomCtx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tally, func(i, j int) bool {
		if tally[i].Votes != tally[j].Votes {
			return tally[i].Votes > tally[j].Votes
		}
		return rank(tally[i].RestaurantID) < rank(tally[j].RestaurantID)
	})
	if len(tally) > limit {
		tally = tally[:limit]
	}

	board := make([]model.LeaderboardEntry, 0, len(tally))
	for _, t := range tally {
		board = append(board, model.LeaderboardEntry{Restaurant: t.RestaurantID, Votes: t.Votes})
	}
	return board, nil
}

// candidateRank orders proposed restaurants first, by proposal time. Unproposed
// ones share the last rank.
func (u *Usecase) candidateRank(ctx context.Context, roomCtx model.RoomContext) (func(int64) int, error) {
	roomID, scoped := roomCtx.RoomID()
	if !scoped || u.candidates == nil {
		return func(int64) int { return 0 }, nil
	}

	candidates, err := u.candidates.Candidates(ctx, roomID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, errors.Join(model.ErrInternal, err)
	}
	pos := make(map[int64]int, len(candidates))
	for i, c := range candidates {
		pos[c.RestaurantID] = i
	}
	return func(restaurantID int64) int {
		if i, ok := pos[restaurantID]; ok {
			return i
		}
		return len(pos)
	}, nil
}

// DailyTrend buckets effective vote changes into the trailing days calendar
// days of loc, oldest first. Days without votes are reported as zero.
func (u *Usecase) DailyTrend(ctx context.Context, roomCtx model.RoomContext, days int, loc *time.Location) ([]model.DailyVotes, error) {
	if days < 1 || days > MaxTrendDays {
		return nil, fmt.Errorf("%w: days must be 1..%d", model.ErrValidation, MaxTrendDays)
	}
	if loc == nil {
		loc = time.UTC
	}

	now := u.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := today.AddDate(0, 0, -(days - 1))

	events, err := u.votes.Events(ctx, roomCtx, start)
	if err != nil {
		return nil, errors.Join(model.ErrInternal, err)
	}

	trend := make([]model.DailyVotes, days)
	index := make(map[string]int, days)
	for i := range days {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		trend[i] = model.DailyVotes{Date: date}
		index[date] = i
	}

	for _, ev := range events {
		if i, ok := index[ev.At.In(loc).Format(dateLayout)]; ok {
			trend[i].TotalVotes += ev.Delta
		}
	}
	return trend, nil
}
