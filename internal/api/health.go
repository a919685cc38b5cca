// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/jetstream/internal/platform/respond"
)

// readinessTimeout bounds each dependency check of the /ready probe.
const readinessTimeout = 2 * time.Second

// Checker is a dependency probed by the /ready endpoint.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type healthHandler struct {
	checkers []Checker
	logger   *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(logger *slog.Logger, checkers ...Checker) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{checkers: checkers, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	results := make([]checkResult, 0, len(handler.checkers))
	isSystemReady := true

	for _, checker := range handler.checkers {
		ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
		err := checker.Check(ctx)
		cancel()

		result := checkResult{Name: checker.Name(), IsOK: err == nil}
		if err != nil {
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", checker.Name()), slog.Any("error", err))
		}
		results = append(results, result)
	}

	if !isSystemReady {
		respond.Status(writer, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"checks": results,
		})
		return
	}

	respond.OK(writer, map[string]any{
		"status": "ready",
		"checks": results,
	})
}
