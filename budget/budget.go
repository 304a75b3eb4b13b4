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

// Package budget enforces per-tenant spending caps and action cooldowns.
//
// Amounts are integer cents. Reservations are prospective: Reserve admits
// or rejects before any money is spent, RecordUsage settles a reservation
// into consumed spend, and Release returns an unused reservation. Consumed
// spend is monotonically non-decreasing within a period and resets only at
// period rollover.
package budget

import (
	"context"
	"time"
)

// Reason is a typed rejection reason so callers can produce precise
// user-facing errors.
type Reason string

const (
	ReasonCapExceeded    Reason = "cap_exceeded"
	ReasonTenantUnknown  Reason = "tenant_unknown"
	ReasonCooldownActive Reason = "cooldown_active"
)

// Decision is the result of a reservation attempt. Rejections are data,
// not errors: Reserve returns a non-nil error only for invalid input or
// store failures.
type Decision struct {
	Allowed        bool   `json:"allowed"`
	Reason         Reason `json:"reason,omitempty"`
	RemainingCents int64  `json:"remaining_cents"`
}

// Stats is a point-in-time snapshot of a tenant's budget.
type Stats struct {
	CapCents       int64     `json:"cap_cents"`
	ConsumedCents  int64     `json:"consumed_cents"`
	ReservedCents  int64     `json:"reserved_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	PercentUsed    float64   `json:"percent_used"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// DefaultPeriod is the budget period applied when none is configured.
const DefaultPeriod = 30 * 24 * time.Hour

// Guard is the budget contract consulted by the router before any
// provider call and by the rules engine before firing actions that cost
// money. Implementations must make Reserve atomic per tenant: two
// concurrent reservations must not both be admitted when their combined
// amount exceeds the cap.
type Guard interface {
	// SetBudget registers or updates a tenant's cap and period. A zero
	// period falls back to DefaultPeriod.
	SetBudget(ctx context.Context, tenantID string, capCents int64, period time.Duration) error

	// Reserve attempts to reserve amountCents against the tenant's
	// remaining budget. amountCents must be non-negative.
	Reserve(ctx context.Context, tenantID string, amountCents int64) (Decision, error)

	// Release returns an unused reservation (cache hit, provider failure).
	Release(ctx context.Context, tenantID string, amountCents int64) error

	// RecordUsage settles amountCents of reservation into consumed spend.
	RecordUsage(ctx context.Context, tenantID string, amountCents int64) error

	// UsageStats returns the tenant's current budget snapshot.
	UsageStats(ctx context.Context, tenantID string) (Stats, error)

	// IsInCooldown reports whether the action identified by key fired
	// less than window ago. The boundary is exclusive: exactly window
	// elapsed means the cooldown is over.
	IsInCooldown(ctx context.Context, tenantID, key string, window time.Duration) (bool, error)

	// LastAction returns when the action identified by key last fired.
	LastAction(ctx context.Context, tenantID, key string) (time.Time, bool, error)

	// MarkAction records that the action identified by key fired now.
	MarkAction(ctx context.Context, tenantID, key string) error
}

// InCooldown is the single cooldown predicate shared by all guard
// implementations: true iff now - lastAction < window. A zero lastAction
// means the action never fired.
func InCooldown(now, lastAction time.Time, window time.Duration) bool {
	if lastAction.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(lastAction) < window
}
