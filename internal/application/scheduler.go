package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/stayctl/internal/ports"
	"golang.org/x/time/rate"
)

const (
	DefaultRefreshBuffer = 60 * time.Second

	immediateRefreshEvery = 5 * time.Second
	immediateRefreshBurst = 3
)

// RefreshScheduler holds at most one pending refresh. Every Arm or Cancel
// bumps the generation so a superseded callback that already started waiting
// on the lock becomes a no-op.
type RefreshScheduler struct {
	clock   ports.Clock
	buffer  time.Duration
	onDue   func()
	logger  *slog.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	timer      ports.Timer
	fireAt     time.Time
	generation uint64
}

// NewRefreshScheduler fires buffer ahead of expiry. A zero buffer fires at
// expiry; a negative one selects DefaultRefreshBuffer.
func NewRefreshScheduler(clock ports.Clock, buffer time.Duration, logger *slog.Logger) *RefreshScheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if buffer < 0 {
		buffer = DefaultRefreshBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshScheduler{
		clock:   clock,
		buffer:  buffer,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(immediateRefreshEvery), immediateRefreshBurst),
	}
}

// SetOnDue installs the refresh callback. It must be called before Arm.
func (s *RefreshScheduler) SetOnDue(onDue func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDue = onDue
}

func (s *RefreshScheduler) Arm(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	generation := s.generation

	now := s.clock.Now()
	delay := expiresAt.Sub(now) - s.buffer
	if delay <= 0 {
		reservation := s.limiter.ReserveN(now, 1)
		if wait := reservation.DelayFrom(now); reservation.OK() && wait > 0 {
			s.logger.Debug("immediate refresh paced", slog.Duration("wait", wait))
			s.armLocked(generation, now, wait)
			return
		}
		s.logger.Debug("session already due, refreshing now", slog.Time("expires_at", expiresAt))
		go s.fire(generation)
		return
	}

	s.armLocked(generation, now, delay)
	s.logger.Debug("refresh armed", slog.Time("fire_at", s.fireAt), slog.Time("expires_at", expiresAt))
}

func (s *RefreshScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *RefreshScheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *RefreshScheduler) NextFire() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.fireAt, true
}

func (s *RefreshScheduler) armLocked(generation uint64, now time.Time, delay time.Duration) {
	s.fireAt = now.Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() {
		s.fire(generation)
	})
}

func (s *RefreshScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.fireAt = time.Time{}
	s.generation++
}

func (s *RefreshScheduler) fire(generation uint64) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.fireAt = time.Time{}
	onDue := s.onDue
	s.mu.Unlock()

	if onDue != nil {
		onDue()
	}
}
