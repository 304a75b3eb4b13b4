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

package router

import (
	"context"
	"fmt"
	"time"

	"axonflow/decisioncore/budget"
	"axonflow/decisioncore/safety"
)

// Request is a content-generation request entering the router. RequestID
// and Timestamp identify this attempt only; retries carry fresh values
// and still hit the same cache entry.
type Request struct {
	RequestID string    `json:"request_id"`
	TenantID  string    `json:"tenant_id"`
	Timestamp time.Time `json:"timestamp"`

	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt"`

	// Language is the desired output language ("en", "de", ...). Two
	// requests differing only in language are distinct generations.
	Language string `json:"language,omitempty"`

	// Personalization folds into the cache key only when enabled, so
	// non-personalized traffic shares cache entries across users.
	PersonalizationEnabled bool              `json:"personalization_enabled,omitempty"`
	Personalization        map[string]string `json:"personalization,omitempty"`
}

// RoutedResponse is the outcome of a successful route. A response with
// ViolatesPolicy set carries the violations as data; deciding what to do
// with flagged content is the caller's business.
type RoutedResponse struct {
	RequestID string `json:"request_id"`
	TenantID  string `json:"tenant_id"`
	Provider  string `json:"provider"`

	Content  string `json:"content"`
	CacheKey string `json:"cache_key"`
	CacheHit bool   `json:"cache_hit"`

	EstimatedTokens int   `json:"estimated_tokens"`
	CostCents       int64 `json:"cost_cents"`
	// ApproximateCost is set when the provider had no configured rate
	// and the default rate was applied.
	ApproximateCost bool `json:"approximate_cost,omitempty"`

	ViolatesPolicy bool               `json:"violates_policy,omitempty"`
	Violations     []safety.Violation `json:"violations,omitempty"`
}

// ProviderClient is the upstream content generator. Implementations must
// honor ctx cancellation.
type ProviderClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// BudgetError reports a request rejected by the budget guard before any
// provider call.
type BudgetError struct {
	TenantID       string
	Reason         budget.Reason
	EstimateCents  int64
	RemainingCents int64
}

// Error implements the error interface.
func (e *BudgetError) Error() string {
	return fmt.Sprintf("budget rejected request for tenant %s: %s (estimate %d cents, remaining %d cents)",
		e.TenantID, e.Reason, e.EstimateCents, e.RemainingCents)
}

// ProviderError wraps an upstream generation failure. The reservation
// has already been released; the request is safe to retry.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying provider failure.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
