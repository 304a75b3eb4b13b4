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

// Package usage tracks per-request usage records and provider rates.
// Records are append-only; the durable store behind Recorder is owned by
// the host process, the core only defines the contract.
package usage

import (
	"context"
	"sync"
)

// Recorder appends usage records to a durable store.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// MemoryRecorder keeps records in process memory. Used in tests and in
// single-instance deployments without a database.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends a usage record.
func (r *MemoryRecorder) Record(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// ByTenant returns a copy of all records for a tenant in append order.
func (r *MemoryRecorder) ByTenant(tenantID string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Record
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the total number of records.
func (r *MemoryRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
