package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/google/uuid"
)

// ChallengeConfig tunes the adaptive proof-of-work escalation. Failures are
// counted per source IP over the trailing Window.
type ChallengeConfig struct {
	Window           time.Duration
	FailureThreshold int // failures at which a challenge is first required
	HighThreshold    int // failures at which the difficulty escalates
	LowDifficulty    int // required leading zero hex digits
	HighDifficulty   int
}

// DefaultChallengeConfig requires a difficulty-3 challenge after 3 failed
// logins in 15 minutes and escalates to difficulty 5 at 6 failures.
var DefaultChallengeConfig = ChallengeConfig{
	Window:           15 * time.Minute,
	FailureThreshold: 3,
	HighThreshold:    6,
	LowDifficulty:    3,
	HighDifficulty:   5,
}

// EventService appends security events to the durable log through a detached
// background dispatcher and derives adaptive challenges from recent history.
// The log is best-effort by design: a broken event pipeline must never take
// down the authentication path.
type EventService struct {
	Store     store.Store
	Logger    *slog.Logger
	Challenge ChallengeConfig

	ch      chan domain.SecurityEvent
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewEventService starts the dispatcher goroutine. bufferSize bounds how many
// events may be in flight; further events are dropped (and counted) rather
// than blocking callers.
func NewEventService(st store.Store, logger *slog.Logger, cfg ChallengeConfig, bufferSize int) *EventService {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if cfg.Window <= 0 {
		cfg = DefaultChallengeConfig
	}

	s := &EventService{
		Store:     st,
		Logger:    logger,
		Challenge: cfg,
		ch:        make(chan domain.SecurityEvent, bufferSize),
		done:      make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()
	return s
}

func (s *EventService) run() {
	defer s.wg.Done()

	for {
		select {
		case ev := <-s.ch:
			s.insert(ev)
		case <-s.done:
			// Drain whatever is still buffered, then exit.
			for {
				select {
				case ev := <-s.ch:
					s.insert(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *EventService) insert(ev domain.SecurityEvent) {
	if err := s.Store.SecurityEvents().InsertEvent(context.Background(), ev); err != nil {
		s.Logger.Error("security event insert failed", "type", ev.Type, "error", err)
	}
}

// Process appends an event to the log without blocking the caller. When the
// buffer is full the event is dropped and counted; delivery is at-most-effort.
func (s *EventService) Process(ev domain.SecurityEvent) {
	if s.closed.Load() {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.ActorID == "" {
		ev.ActorID = domain.ActorApp
	}

	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
		s.Logger.Warn("security event dropped, buffer full", "type", ev.Type)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (s *EventService) Dropped() uint64 { return s.dropped.Load() }

// Close stops accepting events and drains the buffer before returning. The
// hosting runtime calls this once during shutdown for best-effort delivery.
func (s *EventService) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.wg.Wait()
}

// ComputeChallenge counts recent login failures from ip and returns the
// proof-of-work demand the caller must satisfy, or nil when the volume is
// below the threshold. A failing window query fails open: legitimate traffic
// is never blocked by a broken event store.
func (s *EventService) ComputeChallenge(ctx context.Context, ip string) *domain.Challenge {
	since := time.Now().UTC().Add(-s.Challenge.Window)

	failures, err := s.Store.SecurityEvents().CountEventsByTypeAndIP(ctx, domain.EventLoginFailure, ip, since)
	if err != nil {
		s.Logger.Error("challenge window query failed, failing open", "ip", ip, "error", err)
		return nil
	}

	if failures < s.Challenge.FailureThreshold {
		return nil
	}

	difficulty := s.Challenge.LowDifficulty
	if failures >= s.Challenge.HighThreshold {
		difficulty = s.Challenge.HighDifficulty
	}

	return &domain.Challenge{
		Nonce:      uuid.NewString(),
		Difficulty: difficulty,
	}
}

// VerifySolution accepts a proof-of-work answer when the hexadecimal SHA-256
// of nonce concatenated with solution carries at least difficulty leading
// zero digits.
func (s *EventService) VerifySolution(nonce, solution string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}

	sum := sha256.Sum256([]byte(nonce + solution))
	digest := hex.EncodeToString(sum[:])
	if difficulty > len(digest) {
		return false
	}

	for i := range difficulty {
		if digest[i] != '0' {
			return false
		}
	}
	return true
}
