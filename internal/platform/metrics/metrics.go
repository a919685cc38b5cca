// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics collects and exposes Prometheus metrics for the user-service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authentication methods.
const (
	MethodRegister = "register"
	MethodLogin    = "login"
	MethodSocial   = "social"
	MethodRefresh  = "refresh"
)

// Authentication outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Identity resolution paths.
const (
	ResolutionExisting = "existing"
	ResolutionLinked   = "linked"
	ResolutionCreated  = "created"
	ResolutionRetry    = "retry"
)

// Recorder is the metrics contract used by the service layer.
type Recorder interface {
	RecordAuth(method, outcome string)
	RecordResolution(path string)
	ObserveHTTPStatus(statusCode int)
}

// Collector records metrics into a Prometheus registry.
type Collector struct {
	authTotal       *prometheus.CounterVec
	resolutionTotal *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jetstream_auth_attempts_total",
			Help: "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		resolutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jetstream_identity_resolutions_total",
			Help: "External identity resolutions by resolution path.",
		}, []string{"path"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jetstream_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(c.authTotal, c.resolutionTotal, c.httpStatus)

	return c
}

// RecordAuth counts one authentication attempt.
func (c *Collector) RecordAuth(method, outcome string) {
	c.authTotal.WithLabelValues(method, outcome).Inc()
}

// RecordResolution counts one identity resolution step.
func (c *Collector) RecordResolution(path string) {
	c.resolutionTotal.WithLabelValues(path).Inc()
}

// ObserveHTTPStatus counts one HTTP response.
func (c *Collector) ObserveHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordAuth(string, string) {}
func (Nop) RecordResolution(string)   {}
func (Nop) ObserveHTTPStatus(int)     {}
