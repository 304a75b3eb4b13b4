// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package router is the decision pipeline in front of content
// generation: estimate cost, reserve budget, consult the cache, call the
// provider, scan the result, record usage. Exactly one usage record is
// written per successful route.
package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"axonflow/decisioncore/budget"
	"axonflow/decisioncore/cache"
	"axonflow/decisioncore/safety"
	"axonflow/decisioncore/shared/logger"
	"axonflow/decisioncore/usage"
)

// DefaultCacheTTL bounds how long generated content is reused.
const DefaultCacheTTL = 15 * time.Minute

// Config wires a Router's collaborators. Guard, Cache, Rates, Recorder,
// Validator and Provider are required.
type Config struct {
	Guard     budget.Guard
	Cache     cache.Cache
	Rates     *usage.RateTable
	Recorder  usage.Recorder
	Validator *safety.Validator
	Provider  ProviderClient

	// CacheTTL for stored generations. Zero means DefaultCacheTTL.
	CacheTTL time.Duration

	// BlockThreshold is the severity at which a violation marks the
	// response as policy-violating. Zero value means safety.SeverityHigh.
	BlockThreshold safety.Severity
}

// Router routes content-generation requests.
type Router struct {
	guard          budget.Guard
	cache          cache.Cache
	rates          *usage.RateTable
	recorder       usage.Recorder
	validator      *safety.Validator
	provider       ProviderClient
	cacheTTL       time.Duration
	blockThreshold safety.Severity
	log            *logger.Logger

	// nowFn is overridable for tests.
	nowFn func() time.Time
}

// New creates a Router from config.
func New(cfg Config) *Router {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	threshold := cfg.BlockThreshold
	if threshold == "" {
		threshold = safety.SeverityHigh
	}
	return &Router{
		guard:          cfg.Guard,
		cache:          cfg.Cache,
		rates:          cfg.Rates,
		recorder:       cfg.Recorder,
		validator:      cfg.Validator,
		provider:       cfg.Provider,
		cacheTTL:       ttl,
		blockThreshold: threshold,
		log:            logger.New("router"),
		nowFn:          time.Now,
	}
}

// Route runs the full decision pipeline for one request.
//
// Ordering is deliberate: budget is reserved before the cache lookup so
// that admission control sees worst-case spend, and the reservation is
// released the moment we know the provider will not be called.
func (r *Router) Route(ctx context.Context, req Request) (*RoutedResponse, error) {
	tokens := EstimateTokens(req.Provider, req.Prompt)
	costCents, exact := r.rates.CostCents(req.Provider, tokens)
	key := CacheKey(req)

	decision, err := r.guard.Reserve(ctx, req.TenantID, costCents)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		r.log.Warn(req.TenantID, req.RequestID, "Request rejected by budget guard", map[string]interface{}{
			"reason":          string(decision.Reason),
			"estimate_cents":  costCents,
			"remaining_cents": decision.RemainingCents,
		})
		return nil, &BudgetError{
			TenantID:       req.TenantID,
			Reason:         decision.Reason,
			EstimateCents:  costCents,
			RemainingCents: decision.RemainingCents,
		}
	}

	if content, ok := r.cache.Get(ctx, key); ok {
		r.log.Debug(req.TenantID, req.RequestID, "Serving cached generation", map[string]interface{}{
			"cache_key": key,
		})
		if err := r.guard.Release(ctx, req.TenantID, costCents); err != nil {
			r.log.Error(req.TenantID, req.RequestID, "Failed to release reservation after cache hit", map[string]interface{}{
				"error": err.Error(),
			})
		}
		resp := r.finalize(req, key, content, tokens, 0, !exact, true)
		r.record(ctx, req, tokens, 0, true)
		return resp, nil
	}

	content, err := r.provider.Generate(ctx, req)
	if err != nil {
		if relErr := r.guard.Release(ctx, req.TenantID, costCents); relErr != nil {
			r.log.Error(req.TenantID, req.RequestID, "Failed to release reservation after provider failure", map[string]interface{}{
				"error": relErr.Error(),
			})
		}
		r.log.Error(req.TenantID, req.RequestID, "Provider call failed", map[string]interface{}{
			"provider": req.Provider,
			"error":    err.Error(),
		})
		return nil, &ProviderError{Provider: req.Provider, Err: err}
	}

	if err := r.guard.RecordUsage(ctx, req.TenantID, costCents); err != nil {
		r.log.Error(req.TenantID, req.RequestID, "Failed to settle reservation", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp := r.finalize(req, key, content, tokens, costCents, !exact, false)

	// Flagged content is never cached: a repaired phrase list must not
	// keep serving old violations.
	if !resp.ViolatesPolicy {
		r.cache.Put(ctx, key, content, r.cacheTTL)
	}

	r.record(ctx, req, tokens, costCents, false)
	return resp, nil
}

// finalize scans the content and assembles the response.
func (r *Router) finalize(req Request, key, content string, tokens int, costCents int64, approximate, cacheHit bool) *RoutedResponse {
	violations := r.validator.Scan(content)
	blocked := safety.HasBlocking(violations, r.blockThreshold)
	if blocked {
		r.log.Warn(req.TenantID, req.RequestID, "Generated content violates policy", map[string]interface{}{
			"violations": len(violations),
		})
	}

	return &RoutedResponse{
		RequestID:       req.RequestID,
		TenantID:        req.TenantID,
		Provider:        req.Provider,
		Content:         content,
		CacheKey:        key,
		CacheHit:        cacheHit,
		EstimatedTokens: tokens,
		CostCents:       costCents,
		ApproximateCost: approximate,
		ViolatesPolicy:  blocked,
		Violations:      violations,
	}
}

// record writes the single usage record for a successful route.
func (r *Router) record(ctx context.Context, req Request, tokens int, costCents int64, cacheHit bool) {
	rec := usage.Record{
		ID:              uuid.New().String(),
		TenantID:        req.TenantID,
		Timestamp:       r.nowFn().UTC(),
		Provider:        req.Provider,
		EstimatedTokens: tokens,
		CostCents:       costCents,
		CacheHit:        cacheHit,
	}
	if err := r.recorder.Record(ctx, rec); err != nil {
		r.log.Error(req.TenantID, req.RequestID, "Failed to record usage", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
