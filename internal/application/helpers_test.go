package application

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/bnema/stayctl/internal/ports/fakes"
	"github.com/bnema/stayctl/internal/ports/mocks"
)

type countingMetrics struct {
	logins          atomic.Int32
	refreshes       atomic.Int32
	refreshFailures atomic.Int32
	refreshJoined   atomic.Int32
	logouts         atomic.Int32
	storageFailures atomic.Int32
}

func (m *countingMetrics) RecordLogin(bool) { m.logins.Add(1) }

func (m *countingMetrics) RecordRefresh(_ ports.RefreshTrigger, success bool) {
	m.refreshes.Add(1)
	if !success {
		m.refreshFailures.Add(1)
	}
}

func (m *countingMetrics) RecordRefreshJoined()                     { m.refreshJoined.Add(1) }
func (m *countingMetrics) RecordLogout(bool)                        { m.logouts.Add(1) }
func (m *countingMetrics) RecordRetry(int)                          {}
func (m *countingMetrics) RecordStorageFailure(domain.Area, string) { m.storageFailures.Add(1) }

var testEpoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type serviceFixture struct {
	clock     *fakes.Clock
	durable   *fakes.Store
	ephemeral *fakes.Store
	tokens    *TokenStore
	scheduler *RefreshScheduler
	authority *mocks.MockAuthority
	metrics   *countingMetrics
	service   *AuthService
}

type stubCodec struct {
	expiry time.Time
}

func (c stubCodec) DecodeExpiry(string) time.Time { return c.expiry }

func (c stubCodec) DecodeIdentity(token string) (domain.Identity, bool) {
	return domain.Identity{UserID: "from-" + token}, token != ""
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		clock:     fakes.NewClock(testEpoch),
		durable:   fakes.NewStore(),
		ephemeral: fakes.NewStore(),
		authority: mocks.NewMockAuthority(t),
		metrics:   &countingMetrics{},
	}
	f.tokens = NewTokenStore(f.durable, f.ephemeral, nil, f.metrics)
	f.scheduler = NewRefreshScheduler(f.clock, DefaultRefreshBuffer, nil)
	f.service = NewAuthService(AuthServiceConfig{
		Authority: f.authority,
		Tokens:    f.tokens,
		Scheduler: f.scheduler,
		Codec:     stubCodec{expiry: testEpoch.Add(DefaultFallbackTTL)},
		Clock:     f.clock,
		Metrics:   f.metrics,
	})
	t.Cleanup(f.service.Close)
	return f
}
