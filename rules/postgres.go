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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists rules in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE rules (
//	    id               TEXT PRIMARY KEY,
//	    tenant_id        TEXT NOT NULL,
//	    name             TEXT NOT NULL DEFAULT '',
//	    condition        TEXT NOT NULL,
//	    action_type      TEXT NOT NULL,
//	    action_params    JSONB NOT NULL DEFAULT '{}',
//	    cooldown_seconds BIGINT NOT NULL DEFAULT 0,
//	    last_fired       TIMESTAMPTZ
//	);
//	CREATE INDEX idx_rules_tenant ON rules(tenant_id);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListByTenant implements Store.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, condition, action_type, action_params, cooldown_seconds, last_fired
		FROM rules
		WHERE tenant_id = $1
		ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("rules/postgres: list rules: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		var (
			r               Rule
			paramsJSON      []byte
			cooldownSeconds int64
			lastFired       sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.Condition, &r.ActionType, &paramsJSON, &cooldownSeconds, &lastFired); err != nil {
			return nil, fmt.Errorf("rules/postgres: scan rule: %w", err)
		}
		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &r.ActionParams); err != nil {
				return nil, fmt.Errorf("rules/postgres: decode action params for rule %s: %w", r.ID, err)
			}
		}
		r.Cooldown = time.Duration(cooldownSeconds) * time.Second
		if lastFired.Valid {
			r.LastFired = lastFired.Time
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules/postgres: iterate rules: %w", err)
	}
	return out, nil
}

// UpdateLastFired implements Store.
func (s *PostgresStore) UpdateLastFired(ctx context.Context, ruleID string, firedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rules SET last_fired = $2 WHERE id = $1`, ruleID, firedAt)
	if err != nil {
		return fmt.Errorf("rules/postgres: update last fired: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("rules: unknown rule %s", ruleID)
	}
	return nil
}
