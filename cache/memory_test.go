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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	c.Put(ctx, "k1", "generated content", time.Minute)

	val, ok := c.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "generated content", val)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	_, ok := c.Get(context.Background(), "absent")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	now := time.Now()
	c.nowFn = func() time.Time { return now }

	c.Put(ctx, "k1", "v1", 10*time.Second)

	_, ok := c.Get(ctx, "k1")
	assert.True(t, ok)

	// Advance past the TTL.
	now = now.Add(11 * time.Second)
	_, ok = c.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryCacheDefaultTTL(t *testing.T) {
	c := NewMemoryCache(5 * time.Second)
	ctx := context.Background()

	now := time.Now()
	c.nowFn = func() time.Time { return now }

	// Zero TTL falls back to the default.
	c.Put(ctx, "k1", "v1", 0)

	now = now.Add(4 * time.Second)
	_, ok := c.Get(ctx, "k1")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	now := time.Now()
	c.nowFn = func() time.Time { return now }

	c.Put(ctx, "short", "v1", time.Second)
	c.Put(ctx, "long", "v2", time.Hour)

	now = now.Add(2 * time.Second)
	evicted := c.Cleanup()

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.GetStats().Evictions)
}

func TestMemoryCacheHitRate(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	assert.Equal(t, 0.0, c.HitRate())

	c.Put(ctx, "k1", "v1", time.Minute)
	c.Get(ctx, "k1")
	c.Get(ctx, "k1")
	c.Get(ctx, "absent")

	assert.InDelta(t, 66.6, c.HitRate(), 0.1)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			c.Put(ctx, key, "value", time.Minute)
			c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
