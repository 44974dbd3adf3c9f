package service

import "time"

// TutoringOption configures the tutoring assignment and lifecycle services.
type TutoringOption func(*tutoringDeps)

type tutoringDeps struct {
	audit   auditRecorder
	cache   tutoringCacheInvalidator
	metrics *MetricsService
	now     func() time.Time
}

func newTutoringDeps(opts []TutoringOption) tutoringDeps {
	deps := tutoringDeps{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	return deps
}

// WithAuditRecorder records an audit entry after every successful write.
func WithAuditRecorder(audit auditRecorder) TutoringOption {
	return func(d *tutoringDeps) {
		if audit != nil {
			d.audit = audit
		}
	}
}

// WithTutoringCache drops cached tutoring reads after every successful write.
func WithTutoringCache(cache tutoringCacheInvalidator) TutoringOption {
	return func(d *tutoringDeps) {
		if cache != nil {
			d.cache = cache
		}
	}
}

// WithMetrics counts operations by outcome.
func WithMetrics(metrics *MetricsService) TutoringOption {
	return func(d *tutoringDeps) {
		d.metrics = metrics
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TutoringOption {
	return func(d *tutoringDeps) {
		if now != nil {
			d.now = now
		}
	}
}
