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
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-instance
// deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[string]*Rule)}
}

// Put inserts or replaces a rule.
func (s *MemoryStore) Put(rule *Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := *rule
	s.rules[rule.ID] = &cloned
}

// ListByTenant implements Store.
func (s *MemoryStore) ListByTenant(ctx context.Context, tenantID string) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Rule
	for _, r := range s.rules {
		if r.TenantID == tenantID {
			cloned := *r
			out = append(out, &cloned)
		}
	}
	return out, nil
}

// UpdateLastFired implements Store.
func (s *MemoryStore) UpdateLastFired(ctx context.Context, ruleID string, firedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[ruleID]
	if !ok {
		return fmt.Errorf("rules: unknown rule %s", ruleID)
	}
	r.LastFired = firedAt
	return nil
}
