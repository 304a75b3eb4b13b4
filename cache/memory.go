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

package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a cached value with expiration.
type entry struct {
	value     string
	expiresAt time.Time
	createdAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache is a thread-safe in-process cache with per-entry TTL.
type MemoryCache struct {
	entries    map[string]*entry
	defaultTTL time.Duration
	mu         sync.RWMutex

	statsMu sync.Mutex
	stats   Stats

	// nowFn is overridable for tests.
	nowFn func() time.Time
}

// NewMemoryCache creates a new in-memory cache. defaultTTL applies when
// Put is called with a non-positive TTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &MemoryCache{
		entries:    make(map[string]*entry),
		defaultTTL: defaultTTL,
		nowFn:      time.Now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || e.expired(c.nowFn()) {
		c.recordMiss()
		return "", false
	}

	c.recordHit()
	return e.value, true
}

// Put stores value under key. Concurrent writers for the same key race
// benignly; the last write wins.
func (c *MemoryCache) Put(_ context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.nowFn()

	c.mu.Lock()
	c.entries[key] = &entry{
		value:     value,
		expiresAt: now.Add(ttl),
		createdAt: now,
	}
	c.mu.Unlock()
}

// Cleanup removes expired entries and returns the number evicted.
// Should be called periodically (e.g. every minute).
func (c *MemoryCache) Cleanup() int {
	now := c.nowFn()
	evicted := 0

	c.mu.Lock()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			evicted++
		}
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.statsMu.Lock()
		c.stats.Evictions += int64(evicted)
		c.stats.LastEvict = now
		c.statsMu.Unlock()
	}

	return evicted
}

// Len returns the number of entries currently stored, including expired
// entries not yet cleaned up.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a copy of the cache performance counters.
func (c *MemoryCache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (c *MemoryCache) HitRate() float64 {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(total) * 100
}

func (c *MemoryCache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

func (c *MemoryCache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}
