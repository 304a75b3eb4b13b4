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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuardReserveWithinCap(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, time.Hour))

	decision, err := g.Reserve(ctx, "tenant-1", 400)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(600), decision.RemainingCents)
}

func TestMemoryGuardCapExceeded(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, time.Hour))

	// cap=1000, consumed=950, estimate=100 -> reject, nothing spent.
	d, err := g.Reserve(ctx, "tenant-1", 950)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.NoError(t, g.RecordUsage(ctx, "tenant-1", 950))

	decision, err := g.Reserve(ctx, "tenant-1", 100)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonCapExceeded, decision.Reason)
	assert.Equal(t, int64(50), decision.RemainingCents)

	stats, err := g.UsageStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(950), stats.ConsumedCents)
}

func TestMemoryGuardTenantUnknown(t *testing.T) {
	g := NewMemoryGuard()

	decision, err := g.Reserve(context.Background(), "nobody", 100)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonTenantUnknown, decision.Reason)
}

func TestMemoryGuardNegativeAmount(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, time.Hour))

	_, err := g.Reserve(ctx, "tenant-1", -1)
	assert.Error(t, err)
}

func TestMemoryGuardConcurrentReservations(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, time.Hour))

	// 20 concurrent reservations of 100 against a cap of 1000: exactly
	// 10 must be admitted.
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := g.Reserve(ctx, "tenant-1", 100)
			if err != nil {
				t.Errorf("Reserve failed: %v", err)
				return
			}
			if decision.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
}

func TestMemoryGuardReleaseReturnsReservation(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, time.Hour))

	d, err := g.Reserve(ctx, "tenant-1", 800)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// A second large reservation cannot fit until the first is released.
	d, err = g.Reserve(ctx, "tenant-1", 800)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.NoError(t, g.Release(ctx, "tenant-1", 800))

	d, err = g.Reserve(ctx, "tenant-1", 800)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryGuardRecordUsageMovesReservedToConsumed(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, time.Hour))

	d, err := g.Reserve(ctx, "tenant-1", 300)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	stats, err := g.UsageStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), stats.ReservedCents)
	assert.Equal(t, int64(0), stats.ConsumedCents)

	require.NoError(t, g.RecordUsage(ctx, "tenant-1", 300))

	stats, err = g.UsageStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ReservedCents)
	assert.Equal(t, int64(300), stats.ConsumedCents)
	assert.Equal(t, int64(700), stats.RemainingCents)
	assert.InDelta(t, 30.0, stats.PercentUsed, 0.001)
}

func TestMemoryGuardZeroCapPercent(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()
	require.NoError(t, g.SetBudget(ctx, "tenant-1", 0, time.Hour))

	stats, err := g.UsageStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.PercentUsed)
}

func TestMemoryGuardPeriodRollover(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	g.nowFn = func() time.Time { return now }

	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, 24*time.Hour))

	d, err := g.Reserve(ctx, "tenant-1", 1000)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.NoError(t, g.RecordUsage(ctx, "tenant-1", 1000))

	// Cap is exhausted within the period.
	d, err = g.Reserve(ctx, "tenant-1", 1)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// Crossing the boundary resets consumed.
	now = now.Add(25 * time.Hour)
	d, err = g.Reserve(ctx, "tenant-1", 500)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	stats, err := g.UsageStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ConsumedCents)
	assert.Equal(t, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), stats.PeriodStart)
}

func TestMemoryGuardRolloverSkipsMultiplePeriods(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	g.nowFn = func() time.Time { return now }

	require.NoError(t, g.SetBudget(ctx, "tenant-1", 1000, 24*time.Hour))

	now = now.Add(10 * 24 * time.Hour)
	stats, err := g.UsageStats(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), stats.PeriodStart)
}

func TestMemoryGuardCooldownBoundary(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	g.nowFn = func() time.Time { return now }

	require.NoError(t, g.MarkAction(ctx, "tenant-1", "rule:r1"))

	window := time.Minute

	// One unit before the window elapses: still in cooldown.
	now = now.Add(window - time.Nanosecond)
	in, err := g.IsInCooldown(ctx, "tenant-1", "rule:r1", window)
	require.NoError(t, err)
	assert.True(t, in)

	// Exactly the window: cooldown is over.
	now = now.Add(time.Nanosecond)
	in, err = g.IsInCooldown(ctx, "tenant-1", "rule:r1", window)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestMemoryGuardCooldownNeverFired(t *testing.T) {
	g := NewMemoryGuard()

	in, err := g.IsInCooldown(context.Background(), "tenant-1", "rule:never", time.Hour)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestInCooldown(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Second

	tests := []struct {
		name string
		now  time.Time
		last time.Time
		want bool
	}{
		{"just fired", base, base, true},
		{"one second before window", base.Add(9 * time.Second), base, true},
		{"exactly at window", base.Add(10 * time.Second), base, false},
		{"after window", base.Add(11 * time.Second), base, false},
		{"never fired", base, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InCooldown(tt.now, tt.last, window))
		})
	}
}
