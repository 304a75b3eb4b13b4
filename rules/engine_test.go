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

package rules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/decisioncore/budget"
)

func newTestEngine(t *testing.T) (*Engine, *budget.MemoryGuard, *MemoryStore) {
	t.Helper()
	guard := budget.NewMemoryGuard()
	store := NewMemoryStore()
	return NewEngine(guard, store), guard, store
}

func TestFireIfDueFires(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	rule := &Rule{
		ID:         "r1",
		TenantID:   "tenant-1",
		Condition:  "ctr > 0.05",
		ActionType: "pause_campaign",
		ActionParams: map[string]string{
			"campaign": "summer-sale",
		},
		Cooldown: time.Hour,
	}
	store.Put(rule)

	outcome, err := engine.FireIfDue(ctx, rule, Metrics{"ctr": 0.08}, now)
	require.NoError(t, err)
	assert.True(t, outcome.Fired)
	require.NotNil(t, outcome.Action)
	assert.Equal(t, "pause_campaign", outcome.Action.Type)
	assert.Equal(t, "tenant-1", outcome.Action.TenantID)
	assert.Equal(t, now, outcome.Action.FiredAt)
	assert.Equal(t, now, rule.LastFired)

	stored, err := store.ListByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, now, stored[0].LastFired)
}

func TestFireIfDueConditionFalse(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	rule := &Rule{ID: "r1", TenantID: "tenant-1", Condition: "ctr > 0.05", ActionType: "notify"}

	outcome, err := engine.FireIfDue(context.Background(), rule, Metrics{"ctr": 0.01}, time.Now())
	require.NoError(t, err)
	assert.False(t, outcome.Fired)
	assert.Equal(t, SkipConditionFalse, outcome.Skip)
	assert.Nil(t, outcome.Action)
}

func TestFireIfDueCooldownSuppressesSecondFire(t *testing.T) {
	engine, guard, store := newTestEngine(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	guard.SetNow(func() time.Time { return now })

	rule := &Rule{
		ID:         "r1",
		TenantID:   "tenant-1",
		Condition:  "ctr > 0.05",
		ActionType: "notify",
		Cooldown:   time.Hour,
	}
	store.Put(rule)
	metrics := Metrics{"ctr": 0.08}

	outcome, err := engine.FireIfDue(ctx, rule, metrics, now)
	require.NoError(t, err)
	require.True(t, outcome.Fired)

	// Still inside the window.
	now = now.Add(30 * time.Minute)
	outcome, err = engine.FireIfDue(ctx, rule, metrics, now)
	require.NoError(t, err)
	assert.False(t, outcome.Fired)
	assert.Equal(t, SkipCooldownActive, outcome.Skip)

	// Window elapsed.
	now = now.Add(30 * time.Minute)
	outcome, err = engine.FireIfDue(ctx, rule, metrics, now)
	require.NoError(t, err)
	assert.True(t, outcome.Fired)
}

func TestFireIfDueConcurrentSingleFire(t *testing.T) {
	engine, guard, store := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	guard.SetNow(func() time.Time { return now })

	rule := &Rule{
		ID:         "r1",
		TenantID:   "tenant-1",
		Condition:  "ctr > 0.05",
		ActionType: "notify",
		Cooldown:   time.Hour,
	}
	store.Put(rule)
	metrics := Metrics{"ctr": 0.08}

	// 10 concurrent attempts inside one cooldown window: exactly one
	// may fire.
	var wg sync.WaitGroup
	var mu sync.Mutex
	fired := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := engine.FireIfDue(ctx, rule, metrics, now)
			if err != nil {
				t.Errorf("FireIfDue failed: %v", err)
				return
			}
			if outcome.Fired {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fired)
}

func TestFireIfDueInvalidCondition(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	rule := &Rule{ID: "r1", TenantID: "tenant-1", Condition: "ctr >", ActionType: "notify"}

	outcome, err := engine.FireIfDue(context.Background(), rule, Metrics{"ctr": 0.08}, time.Now())
	require.NoError(t, err)
	assert.False(t, outcome.Fired)
	assert.Equal(t, SkipInvalidCondition, outcome.Skip)
	assert.Error(t, outcome.Err)
}

func TestFireIfDueZeroCooldownAlwaysEligible(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	rule := &Rule{ID: "r1", TenantID: "tenant-1", Condition: "ctr > 0.05", ActionType: "notify"}
	store.Put(rule)
	metrics := Metrics{"ctr": 0.08}

	for i := 0; i < 3; i++ {
		outcome, err := engine.FireIfDue(ctx, rule, metrics, now)
		require.NoError(t, err)
		assert.True(t, outcome.Fired, "attempt %d", i)
	}
}

func TestEvaluateAllSortedAndIsolated(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	rls := []*Rule{
		{ID: "r3", TenantID: "tenant-1", Condition: "ctr > 0.05"},
		{ID: "r1", TenantID: "tenant-1", Condition: "ctr >"},
		{ID: "r2", TenantID: "tenant-1", Condition: "spend < 100"},
	}

	evals := engine.EvaluateAll(rls, Metrics{"ctr": 0.08, "spend": 50})
	require.Len(t, evals, 3)

	assert.Equal(t, "r1", evals[0].RuleID)
	assert.False(t, evals[0].Result)
	assert.Equal(t, "ctr >", evals[0].Reason)
	assert.Error(t, evals[0].Err)

	assert.Equal(t, "r2", evals[1].RuleID)
	assert.True(t, evals[1].Result)
	assert.Equal(t, "spend < 100", evals[1].Reason)
	assert.NoError(t, evals[1].Err)

	assert.Equal(t, "r3", evals[2].RuleID)
	assert.True(t, evals[2].Result)
	assert.Equal(t, "ctr > 0.05", evals[2].Reason)
}

func TestRunTenant(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	store.Put(&Rule{ID: "r2", TenantID: "tenant-1", Condition: "spend < 100", ActionType: "notify"})
	store.Put(&Rule{ID: "r1", TenantID: "tenant-1", Condition: "broken >", ActionType: "notify"})
	store.Put(&Rule{ID: "r3", TenantID: "other", Condition: "ctr > 0", ActionType: "notify"})

	outcomes, err := engine.RunTenant(ctx, "tenant-1", Metrics{"spend": 50}, now)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	// Malformed r1 is skipped, r2 still fires.
	assert.Equal(t, "r1", outcomes[0].RuleID)
	assert.Equal(t, SkipInvalidCondition, outcomes[0].Skip)
	assert.Equal(t, "r2", outcomes[1].RuleID)
	assert.True(t, outcomes[1].Fired)
}
