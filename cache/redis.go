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
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a Redis-backed generation cache for multi-instance
// deployments. Redis errors degrade to cache misses (fail open): a
// broken cache must never fail a generation request.
type RedisCache struct {
	client     redis.Cmdable
	keyPrefix  string
	defaultTTL time.Duration
}

// RedisCacheOption configures RedisCache.
type RedisCacheOption func(*RedisCache)

// WithKeyPrefix sets the Redis key prefix (default "decisioncore:cache:").
func WithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) { c.keyPrefix = prefix }
}

// NewRedisCache creates a Redis-backed cache. The client must already be
// connected.
func NewRedisCache(client redis.Cmdable, defaultTTL time.Duration, opts ...RedisCacheOption) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	c := &RedisCache{
		client:     client,
		keyPrefix:  "decisioncore:cache:",
		defaultTTL: defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("[CACHE] Redis get failed for %s: %v (treating as miss)", key, err)
		return "", false
	}
	return val, true
}

// Put stores value under key with the given TTL.
func (c *RedisCache) Put(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		log.Printf("[CACHE] Redis set failed for %s: %v", key, err)
	}
}
