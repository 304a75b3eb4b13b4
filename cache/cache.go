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

// Package cache provides the generation cache used by the AI router.
// Keys are deterministic fingerprints of normalized requests, so any
// concurrent-safe store works: miss-path writes may race and
// last-writer-wins is acceptable because racing writers hold the same
// derived value.
package cache

import (
	"context"
	"time"
)

// Cache is the store contract the router depends on. Implementations must
// be safe for concurrent use.
type Cache interface {
	// Get returns the cached value for key and whether it was present
	// and unexpired.
	Get(ctx context.Context, key string) (string, bool)

	// Put stores value under key with the given TTL.
	Put(ctx context.Context, key, value string, ttl time.Duration)
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Evictions int64     `json:"evictions"`
	LastEvict time.Time `json:"last_evict,omitempty"`
}
