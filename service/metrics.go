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

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	promRouteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisioncore_route_requests_total",
			Help: "Total number of route requests by outcome",
		},
		[]string{"status"},
	)
	promRouteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decisioncore_route_duration_milliseconds",
			Help:    "Route request duration in milliseconds",
			Buckets: []float64{5, 10, 50, 100, 200, 500, 1000, 2000, 5000},
		},
		[]string{"provider"},
	)
	promCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decisioncore_cache_hits_total",
			Help: "Total number of route requests served from cache",
		},
	)
	promBudgetRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisioncore_budget_rejections_total",
			Help: "Total number of requests rejected by the budget guard",
		},
		[]string{"reason"},
	)
	promPolicyViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decisioncore_policy_violations_total",
			Help: "Total number of responses tagged with policy violations",
		},
	)
	promRulesFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decisioncore_rules_fired_total",
			Help: "Total number of rule actions fired",
		},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promRouteRequestsTotal)
	prometheus.MustRegister(promRouteDuration)
	prometheus.MustRegister(promCacheHits)
	prometheus.MustRegister(promBudgetRejections)
	prometheus.MustRegister(promPolicyViolations)
	prometheus.MustRegister(promRulesFired)
}
