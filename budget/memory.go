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

package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"axonflow/decisioncore/shared/numeric"
)

// tenantState holds one tenant's budget and cooldown state behind its
// own lock, so tenants never contend with each other.
type tenantState struct {
	mu          sync.Mutex
	registered  bool
	capCents    int64
	consumed    int64
	reserved    int64
	period      time.Duration
	periodStart time.Time
	lastReset   time.Time
	cooldowns   map[string]time.Time
}

// MemoryGuard is an in-process Guard keyed by tenant. Suitable for
// single-instance deployments and tests; multi-instance deployments
// should use RedisGuard.
type MemoryGuard struct {
	mu      sync.RWMutex
	tenants map[string]*tenantState

	// nowFn is overridable for tests.
	nowFn func() time.Time
}

// NewMemoryGuard creates an empty in-memory guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		tenants: make(map[string]*tenantState),
		nowFn:   time.Now,
	}
}

// SetNow overrides the guard's clock. Intended for tests.
func (g *MemoryGuard) SetNow(fn func() time.Time) {
	g.nowFn = fn
}

// state returns the tenant's state, creating an unregistered placeholder
// if needed (cooldown tracking works for tenants without budgets).
func (g *MemoryGuard) state(tenantID string) *tenantState {
	g.mu.RLock()
	ts, exists := g.tenants[tenantID]
	g.mu.RUnlock()
	if exists {
		return ts
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if ts, exists = g.tenants[tenantID]; exists {
		return ts
	}
	ts = &tenantState{cooldowns: make(map[string]time.Time)}
	g.tenants[tenantID] = ts
	return ts
}

// rollover resets consumed spend when the period boundary has passed.
// In-flight reservations carry into the new period, so a reservation
// racing the rollover is attributed to exactly one period. Must be
// called with ts.mu held.
func (ts *tenantState) rollover(now time.Time) {
	if !ts.registered || ts.period <= 0 {
		return
	}
	for !now.Before(ts.periodStart.Add(ts.period)) {
		ts.periodStart = ts.periodStart.Add(ts.period)
		ts.consumed = 0
		ts.lastReset = now
	}
}

// SetBudget registers or updates a tenant's cap and period.
func (g *MemoryGuard) SetBudget(_ context.Context, tenantID string, capCents int64, period time.Duration) error {
	if capCents < 0 {
		return fmt.Errorf("budget: negative cap %d for tenant %s", capCents, tenantID)
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.registered {
		ts.periodStart = g.nowFn()
	}
	ts.registered = true
	ts.capCents = capCents
	ts.period = period
	return nil
}

// Reserve attempts to reserve amountCents against the tenant's budget.
func (g *MemoryGuard) Reserve(_ context.Context, tenantID string, amountCents int64) (Decision, error) {
	if amountCents < 0 {
		return Decision{}, fmt.Errorf("budget: negative reservation %d for tenant %s", amountCents, tenantID)
	}

	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.registered {
		return Decision{Allowed: false, Reason: ReasonTenantUnknown}, nil
	}

	ts.rollover(g.nowFn())

	remaining := ts.capCents - ts.consumed - ts.reserved
	if amountCents > remaining {
		return Decision{Allowed: false, Reason: ReasonCapExceeded, RemainingCents: max64(remaining, 0)}, nil
	}

	ts.reserved += amountCents
	return Decision{Allowed: true, RemainingCents: remaining - amountCents}, nil
}

// Release returns an unused reservation.
func (g *MemoryGuard) Release(_ context.Context, tenantID string, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("budget: negative release %d for tenant %s", amountCents, tenantID)
	}

	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.reserved -= amountCents
	if ts.reserved < 0 {
		ts.reserved = 0
	}
	return nil
}

// RecordUsage settles amountCents of reservation into consumed spend.
// Consumed only ever grows here; it resets solely at period rollover.
func (g *MemoryGuard) RecordUsage(_ context.Context, tenantID string, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("budget: negative usage %d for tenant %s", amountCents, tenantID)
	}

	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.rollover(g.nowFn())

	ts.reserved -= amountCents
	if ts.reserved < 0 {
		ts.reserved = 0
	}
	ts.consumed += amountCents
	return nil
}

// UsageStats returns the tenant's current budget snapshot.
func (g *MemoryGuard) UsageStats(_ context.Context, tenantID string) (Stats, error) {
	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.registered {
		return Stats{}, fmt.Errorf("budget: unknown tenant %s", tenantID)
	}

	ts.rollover(g.nowFn())

	remaining := ts.capCents - ts.consumed - ts.reserved
	if remaining < 0 {
		remaining = 0
	}

	return Stats{
		CapCents:       ts.capCents,
		ConsumedCents:  ts.consumed,
		ReservedCents:  ts.reserved,
		RemainingCents: remaining,
		PercentUsed:    numeric.PercentOf(float64(ts.consumed), float64(ts.capCents)),
		PeriodStart:    ts.periodStart,
		PeriodEnd:      ts.periodStart.Add(ts.period),
	}, nil
}

// IsInCooldown reports whether the action identified by key fired less
// than window ago.
func (g *MemoryGuard) IsInCooldown(_ context.Context, tenantID, key string, window time.Duration) (bool, error) {
	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return InCooldown(g.nowFn(), ts.cooldowns[key], window), nil
}

// LastAction returns when the action identified by key last fired.
func (g *MemoryGuard) LastAction(_ context.Context, tenantID, key string) (time.Time, bool, error) {
	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	last, ok := ts.cooldowns[key]
	return last, ok, nil
}

// MarkAction records that the action identified by key fired now.
func (g *MemoryGuard) MarkAction(_ context.Context, tenantID, key string) error {
	ts := g.state(tenantID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.cooldowns[key] = g.nowFn()
	return nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
