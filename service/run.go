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

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"axonflow/decisioncore/brief"
	"axonflow/decisioncore/budget"
	"axonflow/decisioncore/cache"
	"axonflow/decisioncore/config"
	"axonflow/decisioncore/reward"
	"axonflow/decisioncore/router"
	"axonflow/decisioncore/rules"
	"axonflow/decisioncore/safety"
	"axonflow/decisioncore/usage"
)

// Run is the exported entry point for the decision core service.
//
// It wires storage backends from the environment, loads the YAML config,
// assembles the decision components and starts the HTTP server. The
// function blocks until the server is shut down.
//
// Environment variables used:
//   - PORT: HTTP server port (overrides config)
//   - CONFIG_PATH: YAML config file (default: config.yaml)
//   - DATABASE_URL: PostgreSQL connection string (optional)
//   - REDIS_URL: Redis connection string (optional)
//   - PROVIDER_GATEWAY_URL: upstream generation gateway (required to route)
func Run() {
	log.Println("Starting Decision Core...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Config file %s not found, using defaults", cfgPath)
			cfg, _ = config.Parse([]byte(`version: "1"`))
		} else {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	svc, err := buildService(cfg)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(svc.Routes())

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	log.Printf("Decision Core listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

// buildService assembles the component graph for one process. Redis and
// PostgreSQL are optional: without them the in-memory backends serve a
// single instance.
func buildService(cfg *config.File) (*Service, error) {
	ctx := context.Background()

	var redisClient *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		log.Println("Connected to Redis")
	}

	var db *sql.DB
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		db, err = sql.Open("postgres", dbURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		log.Println("Connected to PostgreSQL")
	}

	cacheTTL := cfg.CacheTTL()
	if cacheTTL <= 0 {
		cacheTTL = router.DefaultCacheTTL
	}

	var guard budget.Guard
	var genCache cache.Cache
	if redisClient != nil {
		guard = budget.NewRedisGuard(redisClient)
		genCache = cache.NewRedisCache(redisClient, cacheTTL)
	} else {
		guard = budget.NewMemoryGuard()
		genCache = cache.NewMemoryCache(cacheTTL)
	}

	period := cfg.BudgetPeriod()
	for tenantID, capCents := range cfg.Budget.Tenants {
		if err := guard.SetBudget(ctx, tenantID, capCents, period); err != nil {
			return nil, fmt.Errorf("set budget for tenant %s: %w", tenantID, err)
		}
	}

	var recorder usage.Recorder
	var ruleStore rules.Store
	if db != nil {
		recorder = usage.NewPostgresRecorder(db)
		ruleStore = rules.NewPostgresStore(db)
	} else {
		recorder = usage.NewMemoryRecorder()
		ruleStore = rules.NewMemoryStore()
	}

	var rates *usage.RateTable
	if len(cfg.Rates.CentsPer1K) > 0 {
		rates = usage.NewRateTable(cfg.Rates.CentsPer1K, cfg.Rates.CentsPer1K["default"])
	} else {
		rates = usage.NewDefaultRateTable()
	}

	validator := safety.NewValidator(safety.Config{
		MedicalClaims:   cfg.Safety.MedicalClaims,
		FinancialClaims: cfg.Safety.FinancialClaims,
		BannedPhrases:   cfg.Safety.BannedPhrases,
		DisableDefaults: cfg.Safety.DisableDefaults,
	})

	var provider router.ProviderClient
	if gatewayURL := os.Getenv("PROVIDER_GATEWAY_URL"); gatewayURL != "" {
		provider = newHTTPProvider(gatewayURL)
	} else {
		log.Println("PROVIDER_GATEWAY_URL not set, route requests will fail upstream")
		provider = unavailableProvider{}
	}

	rt := router.New(router.Config{
		Guard:     guard,
		Cache:     genCache,
		Rates:     rates,
		Recorder:  recorder,
		Validator: validator,
		Provider:  provider,
		CacheTTL:  cacheTTL,
	})

	return New(Deps{
		Router:    rt,
		Guard:     guard,
		Engine:    rules.NewEngine(guard, ruleStore),
		Rewards:   reward.NewCalculator(cfg.Reward),
		Briefs:    brief.NewGenerator(cfg.Brief.Threshold),
		Validator: validator,
		Recorder:  recorder,
		Cache:     genCache,
		Rates:     rates,
	}), nil
}

// unavailableProvider fails every call; it stands in when no gateway is
// configured so the rest of the surface still serves.
type unavailableProvider struct{}

func (unavailableProvider) Generate(context.Context, router.Request) (string, error) {
	return "", fmt.Errorf("no provider gateway configured")
}
