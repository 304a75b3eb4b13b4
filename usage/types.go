// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import "time"

// Record is one append-only usage entry, written once per routed request
// and never mutated. Cache hits are recorded with zero cost and the
// CacheHit flag set.
type Record struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Timestamp       time.Time `json:"timestamp"`
	Provider        string    `json:"provider"`
	EstimatedTokens int       `json:"estimated_tokens"`
	CostCents       int64     `json:"cost_cents"`
	CacheHit        bool      `json:"cache_hit"`
}
