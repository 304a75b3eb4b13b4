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

package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"axonflow/decisioncore/router"
	"axonflow/decisioncore/rules"
)

// Routes mounts every handler on a fresh mux router.
func (s *Service) Routes() *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", s.healthHandler).Methods("GET")

	// Metrics endpoints
	r.HandleFunc("/metrics", s.metricsHandler).Methods("GET")  // JSON metrics
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET") // Prometheus native format

	// Routing
	r.HandleFunc("/api/v1/route", s.routeHandler).Methods("POST")

	// Budget management
	r.HandleFunc("/api/v1/budget/{tenant_id}", s.budgetStatsHandler).Methods("GET")
	r.HandleFunc("/api/v1/budget/{tenant_id}", s.setBudgetHandler).Methods("PUT")

	// Safety, reward, brief
	r.HandleFunc("/api/v1/safety/scan", s.safetyScanHandler).Methods("POST")
	r.HandleFunc("/api/v1/reward/compute", s.rewardHandler).Methods("POST")
	r.HandleFunc("/api/v1/brief/actions", s.briefHandler).Methods("POST")

	// Rules
	r.HandleFunc("/api/v1/rules/run", s.rulesRunHandler).Methods("POST")

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"service":        "decisioncore",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Service) metricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}
	if mc, ok := s.cache.(interface {
		Len() int
		HitRate() float64
	}); ok {
		metrics["cache_entries"] = mc.Len()
		metrics["cache_hit_rate"] = mc.HitRate()
	}
	if mr, ok := s.recorder.(interface{ Len() int }); ok {
		metrics["usage_records"] = mr.Len()
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Service) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" || req.Provider == "" {
		writeError(w, http.StatusBadRequest, "tenant_id and provider are required")
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	resp, err := s.router.Route(r.Context(), req)
	promRouteDuration.WithLabelValues(req.Provider).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		var budgetErr *router.BudgetError
		if errors.As(err, &budgetErr) {
			promRouteRequestsTotal.WithLabelValues("budget_rejected").Inc()
			promBudgetRejections.WithLabelValues(string(budgetErr.Reason)).Inc()
			writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
				"error":           "budget exceeded",
				"reason":          string(budgetErr.Reason),
				"estimate_cents":  budgetErr.EstimateCents,
				"remaining_cents": budgetErr.RemainingCents,
			})
			return
		}
		var provErr *router.ProviderError
		if errors.As(err, &provErr) {
			promRouteRequestsTotal.WithLabelValues("provider_error").Inc()
			writeError(w, http.StatusBadGateway, provErr.Error())
			return
		}
		promRouteRequestsTotal.WithLabelValues("error").Inc()
		s.log.ErrorWithCode(req.TenantID, req.RequestID, "Route failed", http.StatusInternalServerError, err, nil)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	promRouteRequestsTotal.WithLabelValues("ok").Inc()
	s.log.InfoWithDuration(req.TenantID, req.RequestID, "Route completed",
		float64(time.Since(start).Milliseconds()), map[string]interface{}{
			"provider":  req.Provider,
			"cache_hit": resp.CacheHit,
		})
	if resp.CacheHit {
		promCacheHits.Inc()
	}
	if resp.ViolatesPolicy {
		promPolicyViolations.Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) budgetStatsHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	stats, err := s.guard.UsageStats(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type setBudgetRequest struct {
	CapCents int64  `json:"cap_cents"`
	Period   string `json:"period,omitempty"`
}

func (s *Service) setBudgetHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenant_id"]

	var req setBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var period time.Duration
	if req.Period != "" {
		var err error
		period, err = time.ParseDuration(req.Period)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid period")
			return
		}
	}

	if err := s.guard.SetBudget(r.Context(), tenantID, req.CapCents, period); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanRequest struct {
	Text string `json:"text"`
}

func (s *Service) safetyScanHandler(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	violations := s.validator.Scan(req.Text)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"violations": violations,
		"count":      len(violations),
	})
}

type rewardRequest struct {
	Metrics map[string]float64 `json:"metrics"`
}

func (s *Service) rewardHandler(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	score, breakdown := s.rewards.ComputeWithBreakdown(req.Metrics)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score":     score,
		"breakdown": breakdown,
	})
}

type briefRequest struct {
	TenantID string             `json:"tenant_id"`
	Period   string             `json:"period"`
	Scores   map[string]float64 `json:"scores"`
}

func (s *Service) briefHandler(w http.ResponseWriter, r *http.Request) {
	var req briefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" || req.Period == "" {
		writeError(w, http.StatusBadRequest, "tenant_id and period are required")
		return
	}

	actions := s.briefs.GenerateActions(req.TenantID, req.Scores, req.Period)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}

type rulesRunRequest struct {
	TenantID string        `json:"tenant_id"`
	Metrics  rules.Metrics `json:"metrics"`
}

func (s *Service) rulesRunHandler(w http.ResponseWriter, r *http.Request) {
	var req rulesRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	outcomes, err := s.engine.RunTenant(r.Context(), req.TenantID, req.Metrics, time.Now().UTC())
	if err != nil {
		s.log.Error(req.TenantID, "", "Rules run failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	fired := 0
	results := make([]map[string]interface{}, 0, len(outcomes))
	for _, o := range outcomes {
		entry := map[string]interface{}{
			"rule_id": o.RuleID,
			"fired":   o.Fired,
		}
		if o.Skip != rules.SkipNone {
			entry["skip_reason"] = string(o.Skip)
		}
		if o.Action != nil {
			entry["action"] = o.Action
		}
		if o.Err != nil {
			entry["error"] = o.Err.Error()
		}
		if o.Fired {
			fired++
			promRulesFired.Inc()
		}
		results = append(results, entry)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcomes": results,
		"fired":    fired,
	})
}
