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
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"axonflow/decisioncore/shared/numeric"
)

// RedisGuard is a Redis-backed Guard for multi-instance deployments.
// Budget state lives in a Redis hash per tenant; reservation and
// settlement run as Lua scripts so concurrent instances serialize on the
// Redis side. Cooldown timestamps are plain keys holding unix
// nanoseconds.
type RedisGuard struct {
	client    redis.Cmdable
	keyPrefix string

	// nowFn is overridable for tests.
	nowFn func() time.Time
}

// RedisGuardOption configures RedisGuard.
type RedisGuardOption func(*RedisGuard)

// WithGuardKeyPrefix sets the Redis key prefix (default "decisioncore:budget:").
func WithGuardKeyPrefix(prefix string) RedisGuardOption {
	return func(g *RedisGuard) { g.keyPrefix = prefix }
}

// NewRedisGuard creates a Redis-backed guard. The client must already be
// connected.
func NewRedisGuard(client redis.Cmdable, opts ...RedisGuardOption) *RedisGuard {
	g := &RedisGuard{
		client:    client,
		keyPrefix: "decisioncore:budget:",
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetNow overrides the guard's clock. Intended for tests.
func (g *RedisGuard) SetNow(fn func() time.Time) {
	g.nowFn = fn
}

func (g *RedisGuard) tenantKey(tenantID string) string {
	return g.keyPrefix + tenantID
}

func (g *RedisGuard) cooldownKey(tenantID, key string) string {
	return g.keyPrefix + "cooldown:" + tenantID + ":" + key
}

// reserveScript atomically checks the cap and takes a reservation.
// KEYS[1] = tenant hash key
// ARGV[1] = amount (cents)
// ARGV[2] = now (unix seconds)
//
// The script performs a lazy period rollover before checking: if now has
// crossed period_start + period_seconds, consumed resets and period_start
// advances. Reserved carries across the boundary so an in-flight
// reservation is attributed to exactly one period.
//
// Returns {code, remaining}: code 1 = reserved, 0 = cap exceeded,
// -1 = tenant unknown.
var reserveScript = redis.NewScript(`
local tenant_key = KEYS[1]
local amount = tonumber(ARGV[1])
local now = tonumber(ARGV[2])

local cap = redis.call("HGET", tenant_key, "cap_cents")
if not cap then
    return {-1, 0}
end
cap = tonumber(cap)

local period = tonumber(redis.call("HGET", tenant_key, "period_seconds") or "0")
local period_start = tonumber(redis.call("HGET", tenant_key, "period_start") or "0")
if period > 0 then
    while now >= period_start + period do
        period_start = period_start + period
        redis.call("HSET", tenant_key, "consumed", "0", "period_start", tostring(period_start), "last_reset", tostring(now))
    end
end

local consumed = tonumber(redis.call("HGET", tenant_key, "consumed") or "0")
local reserved = tonumber(redis.call("HGET", tenant_key, "reserved") or "0")
local remaining = cap - consumed - reserved

if amount > remaining then
    if remaining < 0 then
        remaining = 0
    end
    return {0, remaining}
end

redis.call("HINCRBY", tenant_key, "reserved", amount)
return {1, remaining - amount}
`)

// settleScript moves amount from reserved into consumed.
// KEYS[1] = tenant hash key, ARGV[1] = amount, ARGV[2] = now (unix seconds)
var settleScript = redis.NewScript(`
local tenant_key = KEYS[1]
local amount = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
if redis.call("EXISTS", tenant_key) == 0 then
    return 1
end

local period = tonumber(redis.call("HGET", tenant_key, "period_seconds") or "0")
local period_start = tonumber(redis.call("HGET", tenant_key, "period_start") or "0")
if period > 0 then
    while now >= period_start + period do
        period_start = period_start + period
        redis.call("HSET", tenant_key, "consumed", "0", "period_start", tostring(period_start), "last_reset", tostring(now))
    end
end

local reserved = tonumber(redis.call("HGET", tenant_key, "reserved") or "0")
reserved = reserved - amount
if reserved < 0 then
    reserved = 0
end
redis.call("HSET", tenant_key, "reserved", tostring(reserved))
redis.call("HINCRBY", tenant_key, "consumed", amount)
return 1
`)

// releaseScript returns an unused reservation, clamped at zero.
// KEYS[1] = tenant hash key, ARGV[1] = amount
var releaseScript = redis.NewScript(`
local tenant_key = KEYS[1]
local amount = tonumber(ARGV[1])
if redis.call("EXISTS", tenant_key) == 0 then
    return 1
end
local reserved = tonumber(redis.call("HGET", tenant_key, "reserved") or "0")
reserved = reserved - amount
if reserved < 0 then
    reserved = 0
end
redis.call("HSET", tenant_key, "reserved", tostring(reserved))
return 1
`)

// SetBudget registers or updates a tenant's cap and period. An existing
// tenant keeps its consumed/reserved state and period start.
func (g *RedisGuard) SetBudget(ctx context.Context, tenantID string, capCents int64, period time.Duration) error {
	if capCents < 0 {
		return fmt.Errorf("budget: negative cap %d for tenant %s", capCents, tenantID)
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	key := g.tenantKey(tenantID)
	exists, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("budget/redis: set budget: %w", err)
	}

	if exists == 0 {
		err = g.client.HSet(ctx, key,
			"cap_cents", capCents,
			"consumed", 0,
			"reserved", 0,
			"period_seconds", int64(period.Seconds()),
			"period_start", g.nowFn().UTC().Unix(),
		).Err()
	} else {
		err = g.client.HSet(ctx, key,
			"cap_cents", capCents,
			"period_seconds", int64(period.Seconds()),
		).Err()
	}
	if err != nil {
		return fmt.Errorf("budget/redis: set budget: %w", err)
	}
	return nil
}

// Reserve attempts to reserve amountCents against the tenant's budget.
func (g *RedisGuard) Reserve(ctx context.Context, tenantID string, amountCents int64) (Decision, error) {
	if amountCents < 0 {
		return Decision{}, fmt.Errorf("budget: negative reservation %d for tenant %s", amountCents, tenantID)
	}

	result, err := reserveScript.Run(ctx, g.client,
		[]string{g.tenantKey(tenantID)},
		amountCents, g.nowFn().UTC().Unix(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("budget/redis: reserve: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("budget/redis: unexpected reserve result: %v", result)
	}

	switch result[0] {
	case 1:
		return Decision{Allowed: true, RemainingCents: result[1]}, nil
	case 0:
		return Decision{Allowed: false, Reason: ReasonCapExceeded, RemainingCents: result[1]}, nil
	case -1:
		return Decision{Allowed: false, Reason: ReasonTenantUnknown}, nil
	default:
		return Decision{}, fmt.Errorf("budget/redis: unexpected reserve code: %d", result[0])
	}
}

// Release returns an unused reservation.
func (g *RedisGuard) Release(ctx context.Context, tenantID string, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("budget: negative release %d for tenant %s", amountCents, tenantID)
	}
	_, err := releaseScript.Run(ctx, g.client, []string{g.tenantKey(tenantID)}, amountCents).Result()
	if err != nil {
		return fmt.Errorf("budget/redis: release: %w", err)
	}
	return nil
}

// RecordUsage settles amountCents of reservation into consumed spend.
func (g *RedisGuard) RecordUsage(ctx context.Context, tenantID string, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("budget: negative usage %d for tenant %s", amountCents, tenantID)
	}
	_, err := settleScript.Run(ctx, g.client,
		[]string{g.tenantKey(tenantID)},
		amountCents, g.nowFn().UTC().Unix(),
	).Result()
	if err != nil {
		return fmt.Errorf("budget/redis: record usage: %w", err)
	}
	return nil
}

// UsageStats returns the tenant's current budget snapshot.
func (g *RedisGuard) UsageStats(ctx context.Context, tenantID string) (Stats, error) {
	vals, err := g.client.HMGet(ctx, g.tenantKey(tenantID),
		"cap_cents", "consumed", "reserved", "period_seconds", "period_start").Result()
	if err != nil {
		return Stats{}, fmt.Errorf("budget/redis: usage stats: %w", err)
	}
	if vals[0] == nil {
		return Stats{}, fmt.Errorf("budget: unknown tenant %s", tenantID)
	}

	capCents := parseField(vals[0])
	consumed := parseField(vals[1])
	reserved := parseField(vals[2])
	periodSeconds := parseField(vals[3])
	periodStart := parseField(vals[4])

	// Lazy rollover check (read-only, the next write settles it).
	now := g.nowFn().UTC().Unix()
	if periodSeconds > 0 {
		for now >= periodStart+periodSeconds {
			periodStart += periodSeconds
			consumed = 0
		}
	}

	remaining := capCents - consumed - reserved
	if remaining < 0 {
		remaining = 0
	}

	return Stats{
		CapCents:       capCents,
		ConsumedCents:  consumed,
		ReservedCents:  reserved,
		RemainingCents: remaining,
		PercentUsed:    numeric.PercentOf(float64(consumed), float64(capCents)),
		PeriodStart:    time.Unix(periodStart, 0).UTC(),
		PeriodEnd:      time.Unix(periodStart+periodSeconds, 0).UTC(),
	}, nil
}

// IsInCooldown reports whether the action identified by key fired less
// than window ago.
func (g *RedisGuard) IsInCooldown(ctx context.Context, tenantID, key string, window time.Duration) (bool, error) {
	last, ok, err := g.LastAction(ctx, tenantID, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return InCooldown(g.nowFn(), last, window), nil
}

// LastAction returns when the action identified by key last fired.
func (g *RedisGuard) LastAction(ctx context.Context, tenantID, key string) (time.Time, bool, error) {
	val, err := g.client.Get(ctx, g.cooldownKey(tenantID, key)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("budget/redis: last action: %w", err)
	}

	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("budget/redis: malformed cooldown timestamp: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}

// MarkAction records that the action identified by key fired now.
// Entries expire after 30 days to keep the keyspace bounded; no
// meaningful cooldown window outlives that.
func (g *RedisGuard) MarkAction(ctx context.Context, tenantID, key string) error {
	err := g.client.Set(ctx, g.cooldownKey(tenantID, key),
		strconv.FormatInt(g.nowFn().UnixNano(), 10), 30*24*time.Hour).Err()
	if err != nil {
		return fmt.Errorf("budget/redis: mark action: %w", err)
	}
	return nil
}

func parseField(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
