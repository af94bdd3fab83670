package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	requestCounter     prometheus.Counter
	loginCounter       *prometheus.CounterVec
	tokenIssueCounter  *prometheus.CounterVec
	twoFactorChallenge *prometheus.CounterVec
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		requestCounter: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}),
		loginCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by method and outcome",
		}, []string{"method", "outcome"}),
		tokenIssueCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "one_time_tokens_issued_total",
			Help:      "Total number of one-time tokens issued by purpose",
		}, []string{"purpose"}),
		twoFactorChallenge: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "two_factor_challenges_total",
			Help:      "Total number of second-factor challenges by kind and outcome",
		}, []string{"kind", "outcome"}),
	}, nil
}

// RequestCounter exposes the HTTP request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.requestCounter
}

// RecordLogin increments the login counter for a method and outcome.
func (p *Provider) RecordLogin(method, outcome string) {
	if p == nil {
		return
	}
	p.loginCounter.WithLabelValues(method, outcome).Inc()
}

// RecordTokenIssued increments the one-time token counter for a purpose.
func (p *Provider) RecordTokenIssued(purpose string) {
	if p == nil {
		return
	}
	p.tokenIssueCounter.WithLabelValues(purpose).Inc()
}

// RecordTwoFactorChallenge increments the second-factor challenge counter.
func (p *Provider) RecordTwoFactorChallenge(kind, outcome string) {
	if p == nil {
		return
	}
	p.twoFactorChallenge.WithLabelValues(kind, outcome).Inc()
}
