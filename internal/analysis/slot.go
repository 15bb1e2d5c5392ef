package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type slotStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	CompareAndSet(ctx context.Context, guardKey, expected, key, value string, ttl time.Duration) (bool, error)
}

type slotKeyer interface {
	AnalysisTicketKey(userID string) string
	AnalysisResultKey(userID string) string
}

// ErrNoResult is returned by Latest when nothing was committed yet.
var ErrNoResult = errors.New("no analysis result")

// Ticket orders analyses of one user; higher sequence numbers are newer.
type Ticket struct {
	UserID string
	Seq    int64
}

// StoredResult is what the slot keeps per user.
type StoredResult struct {
	AnalysisID  string           `json:"analysis_id"`
	Result      *NutritionResult `json:"result"`
	CompletedAt time.Time        `json:"completed_at"`
}

// ResultSlot keeps the most recently started analysis result per user.
// An analysis that finishes after a newer one was started never overwrites it.
type ResultSlot struct {
	store  slotStore
	keyer  slotKeyer
	ttl    time.Duration
	isMiss func(error) bool
}

// NewResultSlot builds a slot over redis-like storage. isMiss reports the
// store's "key does not exist" error.
func NewResultSlot(store slotStore, keyer slotKeyer, ttl time.Duration, isMiss func(error) bool) (*ResultSlot, error) {
	if store == nil || keyer == nil {
		return nil, errors.New("result slot store required")
	}
	if ttl <= 0 {
		return nil, errors.New("result slot ttl must be positive")
	}
	if isMiss == nil {
		isMiss = func(error) bool { return false }
	}
	return &ResultSlot{store: store, keyer: keyer, ttl: ttl, isMiss: isMiss}, nil
}

// Begin issues a ticket newer than every earlier one for userID.
func (s *ResultSlot) Begin(ctx context.Context, userID string) (Ticket, error) {
	seq, err := s.store.Incr(ctx, s.keyer.AnalysisTicketKey(userID))
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{UserID: userID, Seq: seq}, nil
}

// Commit stores res only while t is still the newest ticket. It reports
// whether the result was kept.
func (s *ResultSlot) Commit(ctx context.Context, t Ticket, res StoredResult) (bool, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return false, err
	}
	return s.store.CompareAndSet(ctx,
		s.keyer.AnalysisTicketKey(t.UserID),
		strconv.FormatInt(t.Seq, 10),
		s.keyer.AnalysisResultKey(t.UserID),
		string(payload),
		s.ttl,
	)
}

// Latest returns the committed result for userID or ErrNoResult.
func (s *ResultSlot) Latest(ctx context.Context, userID string) (*StoredResult, error) {
	raw, err := s.store.Get(ctx, s.keyer.AnalysisResultKey(userID))
	if err != nil {
		if s.isMiss(err) {
			return nil, ErrNoResult
		}
		return nil, err
	}
	if raw == "" {
		return nil, ErrNoResult
	}
	var stored StoredResult
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
