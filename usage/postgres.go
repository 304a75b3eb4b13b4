// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// PostgresRecorder persists usage records to PostgreSQL. Schema
// migrations are owned by the host process; this recorder only writes.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder creates a recorder backed by the given database.
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record inserts a usage record. Errors are logged and returned; callers
// on the hot path may choose to ignore them rather than fail a response.
func (r *PostgresRecorder) Record(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records (
			id, tenant_id, recorded_at, provider,
			estimated_tokens, cost_cents, cache_hit
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.TenantID, rec.Timestamp, rec.Provider,
		rec.EstimatedTokens, rec.CostCents, rec.CacheHit)

	if err != nil {
		log.Printf("[USAGE] Failed to record usage for tenant %s: %v", rec.TenantID, err)
		return fmt.Errorf("record usage: %w", err)
	}

	return nil
}
