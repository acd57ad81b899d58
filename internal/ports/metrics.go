package ports

import "github.com/bnema/stayctl/internal/domain"

type RefreshTrigger string

const (
	RefreshTriggerTimer       RefreshTrigger = "timer"
	RefreshTriggerInterceptor RefreshTrigger = "interceptor"
	RefreshTriggerStartup     RefreshTrigger = "startup"
	RefreshTriggerManual      RefreshTrigger = "manual"
)

type AuthMetrics interface {
	RecordLogin(success bool)
	RecordRefresh(trigger RefreshTrigger, success bool)
	RecordRefreshJoined()
	RecordLogout(remoteOK bool)
	RecordRetry(status int)
	RecordStorageFailure(area domain.Area, op string)
}

type NopMetrics struct{}

func (NopMetrics) RecordLogin(bool)                         {}
func (NopMetrics) RecordRefresh(RefreshTrigger, bool)       {}
func (NopMetrics) RecordRefreshJoined()                     {}
func (NopMetrics) RecordLogout(bool)                        {}
func (NopMetrics) RecordRetry(int)                          {}
func (NopMetrics) RecordStorageFailure(domain.Area, string) {}
