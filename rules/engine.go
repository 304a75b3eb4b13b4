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
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"axonflow/decisioncore/budget"
)

// Rule is a tenant-scoped automation rule: when its condition holds over
// a metrics snapshot and the cooldown window has elapsed, the attached
// action fires.
type Rule struct {
	ID           string
	TenantID     string
	Name         string
	Condition    string
	ActionType   string
	ActionParams map[string]string
	Cooldown     time.Duration
	LastFired    time.Time
}

// SkipReason explains why FireIfDue did not fire a rule.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipConditionFalse   SkipReason = "condition_false"
	SkipCooldownActive   SkipReason = "cooldown_active"
	SkipInvalidCondition SkipReason = "invalid_condition"
)

// ActionRequest is the action emitted when a rule fires.
type ActionRequest struct {
	RuleID   string            `json:"rule_id"`
	TenantID string            `json:"tenant_id"`
	Type     string            `json:"type"`
	Params   map[string]string `json:"params,omitempty"`
	FiredAt  time.Time         `json:"fired_at"`
}

// Outcome is the result of a FireIfDue pass over one rule.
type Outcome struct {
	RuleID string
	Fired  bool
	Skip   SkipReason
	Action *ActionRequest
	Err    error
}

// Evaluation is the result of a pure condition evaluation. Reason
// carries the condition text that was evaluated, so a log line or API
// response can explain the result without a second rule lookup.
type Evaluation struct {
	RuleID string
	Result bool
	Reason string
	Err    error
}

// Store persists rules.
type Store interface {
	ListByTenant(ctx context.Context, tenantID string) ([]*Rule, error)
	UpdateLastFired(ctx context.Context, ruleID string, firedAt time.Time) error
}

// Engine evaluates rule conditions and fires due actions. Firing is
// idempotent within a cooldown window: concurrent FireIfDue calls for the
// same rule serialize on a per-rule lock, and the cooldown check inside
// the lock guarantees at most one fire per window.
type Engine struct {
	guard budget.Guard
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	exprMu sync.RWMutex
	exprs  map[string]Expr
}

// NewEngine creates an engine. The guard tracks cooldown timestamps;
// the store records last-fired times.
func NewEngine(guard budget.Guard, store Store) *Engine {
	return &Engine{
		guard: guard,
		store: store,
		locks: make(map[string]*sync.Mutex),
		exprs: make(map[string]Expr),
	}
}

func (e *Engine) ruleLock(ruleID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[ruleID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[ruleID] = l
	}
	return l
}

// parse returns the cached expression for condition text, parsing on
// first use. Parse failures are not cached; a repaired rule re-parses.
func (e *Engine) parse(condition string) (Expr, error) {
	e.exprMu.RLock()
	expr, ok := e.exprs[condition]
	e.exprMu.RUnlock()
	if ok {
		return expr, nil
	}

	expr, err := ParseCondition(condition)
	if err != nil {
		return nil, err
	}

	e.exprMu.Lock()
	e.exprs[condition] = expr
	e.exprMu.Unlock()
	return expr, nil
}

// Evaluate evaluates a rule's condition against a metrics snapshot. It
// is pure: no clocks, no stores, no side effects. A malformed condition
// returns (false, *InvalidConditionError).
func (e *Engine) Evaluate(rule *Rule, metrics Metrics) (bool, error) {
	expr, err := e.parse(rule.Condition)
	if err != nil {
		return false, err
	}
	return expr.Eval(metrics), nil
}

// EvaluateAll evaluates every rule against the same snapshot, ordered by
// rule ID. A malformed rule yields a false Evaluation with Err set and
// does not affect its siblings.
func (e *Engine) EvaluateAll(rls []*Rule, metrics Metrics) []Evaluation {
	sorted := make([]*Rule, len(rls))
	copy(sorted, rls)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	evals := make([]Evaluation, 0, len(sorted))
	for _, r := range sorted {
		result, err := e.Evaluate(r, metrics)
		evals = append(evals, Evaluation{RuleID: r.ID, Result: result, Reason: r.Condition, Err: err})
	}
	return evals
}

// FireIfDue evaluates the rule and fires its action if the condition
// holds and the rule is outside its cooldown window. Exactly one of
// Fired and Skip is meaningful in the returned Outcome.
func (e *Engine) FireIfDue(ctx context.Context, rule *Rule, metrics Metrics, now time.Time) (Outcome, error) {
	l := e.ruleLock(rule.ID)
	l.Lock()
	defer l.Unlock()

	result, err := e.Evaluate(rule, metrics)
	if err != nil {
		log.Printf("[RULES] Rule %s has invalid condition: %v", rule.ID, err)
		return Outcome{RuleID: rule.ID, Skip: SkipInvalidCondition, Err: err}, nil
	}
	if !result {
		return Outcome{RuleID: rule.ID, Skip: SkipConditionFalse}, nil
	}

	if rule.Cooldown > 0 {
		last, ok, err := e.guard.LastAction(ctx, rule.TenantID, cooldownKey(rule.ID))
		if err != nil {
			return Outcome{}, fmt.Errorf("rules: cooldown lookup for rule %s: %w", rule.ID, err)
		}
		if ok && budget.InCooldown(now, last, rule.Cooldown) {
			return Outcome{RuleID: rule.ID, Skip: SkipCooldownActive}, nil
		}
	}

	if err := e.guard.MarkAction(ctx, rule.TenantID, cooldownKey(rule.ID)); err != nil {
		return Outcome{}, fmt.Errorf("rules: mark action for rule %s: %w", rule.ID, err)
	}
	if e.store != nil {
		if err := e.store.UpdateLastFired(ctx, rule.ID, now); err != nil {
			// The cooldown mark is authoritative; a failed store write
			// must not double-fire the action.
			log.Printf("[RULES] Failed to persist last-fired for rule %s: %v", rule.ID, err)
		}
	}
	rule.LastFired = now

	return Outcome{
		RuleID: rule.ID,
		Fired:  true,
		Action: &ActionRequest{
			RuleID:   rule.ID,
			TenantID: rule.TenantID,
			Type:     rule.ActionType,
			Params:   rule.ActionParams,
			FiredAt:  now,
		},
	}, nil
}

// RunTenant loads a tenant's rules and runs FireIfDue over each, ordered
// by rule ID. Per-rule failures are reported in the outcome, not
// returned, so one bad rule cannot starve the rest.
func (e *Engine) RunTenant(ctx context.Context, tenantID string, metrics Metrics, now time.Time) ([]Outcome, error) {
	if e.store == nil {
		return nil, fmt.Errorf("rules: engine has no store")
	}
	rls, err := e.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("rules: list rules for tenant %s: %w", tenantID, err)
	}

	sort.Slice(rls, func(i, j int) bool { return rls[i].ID < rls[j].ID })

	outcomes := make([]Outcome, 0, len(rls))
	for _, r := range rls {
		outcome, err := e.FireIfDue(ctx, r, metrics, now)
		if err != nil {
			outcome = Outcome{RuleID: r.ID, Err: err}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// cooldownKey namespaces rule cooldowns inside the guard's action space.
func cooldownKey(ruleID string) string {
	return "rule:" + ruleID
}
