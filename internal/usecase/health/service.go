package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckCache      = "cache"
	CheckLlamaCloud = "llamacloud"
	CheckLLM        = "llm"
)

const checkTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache      CachePinger
	llamaCloud Checker
	llm        Checker
}

// New creates a Service. cache and llm can be nil when not configured.
func New(cache CachePinger, llamaCloud, llm Checker) *Service {
	return &Service{cache: cache, llamaCloud: llamaCloud, llm: llm}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks[CheckCache] = run(ctx, s.cache.Ping)
	}
	if s.llamaCloud != nil {
		checks[CheckLlamaCloud] = run(ctx, s.llamaCloud.HealthCheck)
	}
	if s.llm != nil {
		checks[CheckLLM] = run(ctx, s.llm.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func run(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
