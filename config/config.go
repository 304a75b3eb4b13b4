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

// Package config loads the decision core's YAML configuration file.
// Environment variable references in the file (${VAR} and
// ${VAR:-default}) are expanded before parsing, so secrets stay out of
// the file itself.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"axonflow/decisioncore/reward"
)

// File is the root structure of the configuration file.
type File struct {
	Version string        `yaml:"version"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Budget  BudgetConfig  `yaml:"budget,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	Rates   RatesConfig   `yaml:"rates,omitempty"`
	Safety  SafetyConfig  `yaml:"safety,omitempty"`
	Reward  reward.Config `yaml:"reward,omitempty"`
	Brief   BriefConfig   `yaml:"brief,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// BudgetConfig sets per-tenant caps and the default period.
type BudgetConfig struct {
	// Period is a Go duration string ("720h"). Empty means the guard's
	// default period.
	Period string `yaml:"period,omitempty"`

	// Tenants maps tenant id to cap in cents.
	Tenants map[string]int64 `yaml:"tenants,omitempty"`
}

// CacheConfig configures the generation cache.
type CacheConfig struct {
	// TTL is a Go duration string ("15m").
	TTL string `yaml:"ttl,omitempty"`
}

// RatesConfig maps provider name to cents per 1K tokens. The "default"
// entry covers unknown providers.
type RatesConfig struct {
	CentsPer1K map[string]int64 `yaml:"cents_per_1k,omitempty"`
}

// SafetyConfig adds phrases on top of the built-in sets.
type SafetyConfig struct {
	MedicalClaims   []string `yaml:"medical_claims,omitempty"`
	FinancialClaims []string `yaml:"financial_claims,omitempty"`
	BannedPhrases   []string `yaml:"banned_phrases,omitempty"`
	DisableDefaults bool     `yaml:"disable_defaults,omitempty"`
}

// BriefConfig configures brief generation.
type BriefConfig struct {
	// Threshold is the distance from the cohort median beyond which an
	// entity is a winner or laggard.
	Threshold float64 `yaml:"threshold,omitempty"`
}

const defaultPort = 8080

// Matches ${VAR_NAME}, ${VAR_NAME:-default} and $VAR_NAME.
var envVarRegex = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*(:-[^}]*)?\}|\$[A-Za-z_][A-Za-z0-9_]*`)

// Load reads, expands and parses the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses raw YAML config content.
func Parse(data []byte) (*File, error) {
	expanded := expandEnvVars(string(data))

	var f File
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if f.Server.Port == 0 {
		f.Server.Port = defaultPort
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Server.Port < 0 || f.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", f.Server.Port)
	}
	if f.Budget.Period != "" {
		if _, err := time.ParseDuration(f.Budget.Period); err != nil {
			return fmt.Errorf("invalid budget period %q: %w", f.Budget.Period, err)
		}
	}
	if f.Cache.TTL != "" {
		if _, err := time.ParseDuration(f.Cache.TTL); err != nil {
			return fmt.Errorf("invalid cache ttl %q: %w", f.Cache.TTL, err)
		}
	}
	for tenant, capCents := range f.Budget.Tenants {
		if capCents < 0 {
			return fmt.Errorf("negative budget cap %d for tenant %s", capCents, tenant)
		}
	}
	for provider, rate := range f.Rates.CentsPer1K {
		if rate < 0 {
			return fmt.Errorf("negative rate %d for provider %s", rate, provider)
		}
	}
	return nil
}

// BudgetPeriod returns the parsed budget period, or zero when unset.
func (f *File) BudgetPeriod() time.Duration {
	if f.Budget.Period == "" {
		return 0
	}
	d, _ := time.ParseDuration(f.Budget.Period)
	return d
}

// CacheTTL returns the parsed cache TTL, or zero when unset.
func (f *File) CacheTTL() time.Duration {
	if f.Cache.TTL == "" {
		return 0
	}
	d, _ := time.ParseDuration(f.Cache.TTL)
	return d
}

// expandEnvVars expands environment variable references. Undefined
// variables without a default become empty strings.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName, fallback string
		hasFallback := false

		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if idx := strings.Index(inner, ":-"); idx >= 0 {
				varName, fallback = inner[:idx], inner[idx+2:]
				hasFallback = true
			} else {
				varName = inner
			}
		} else {
			varName = match[1:]
		}

		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}
