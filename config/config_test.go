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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
version: "1"
server:
  port: 9090
budget:
  period: 720h
  tenants:
    tenant-1: 50000
    tenant-2: 10000
cache:
  ttl: 15m
rates:
  cents_per_1k:
    openai: 200
    anthropic: 300
    default: 300
safety:
  medical_claims:
    - "reverses aging"
  banned_phrases:
    - "limited time miracle"
reward:
  weights:
    ctr: 2.0
    conversion: 1.0
  bounds:
    ctr:
      min: 0
      max: 0.2
  neutral_default: 0.5
brief:
  threshold: 0.25
`

func TestLoadFullConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, f.Server.Port)
	assert.Equal(t, 30*24*time.Hour, f.BudgetPeriod())
	assert.Equal(t, int64(50000), f.Budget.Tenants["tenant-1"])
	assert.Equal(t, 15*time.Minute, f.CacheTTL())
	assert.Equal(t, int64(200), f.Rates.CentsPer1K["openai"])
	assert.Equal(t, []string{"reverses aging"}, f.Safety.MedicalClaims)
	assert.Equal(t, 2.0, f.Reward.Weights["ctr"])
	assert.Equal(t, 0.2, f.Reward.Bounds["ctr"].Max)
	assert.Equal(t, 0.25, f.Brief.Threshold)
}

func TestParseDefaults(t *testing.T) {
	f, err := Parse([]byte(`version: "1"`))
	require.NoError(t, err)

	assert.Equal(t, defaultPort, f.Server.Port)
	assert.Equal(t, time.Duration(0), f.BudgetPeriod())
	assert.Equal(t, time.Duration(0), f.CacheTTL())
}

func TestParseEnvExpansion(t *testing.T) {
	t.Setenv("DC_PORT", "7070")
	t.Setenv("DC_TENANT_CAP", "1234")

	f, err := Parse([]byte(`
server:
  port: ${DC_PORT}
budget:
  tenants:
    tenant-1: ${DC_TENANT_CAP}
cache:
  ttl: ${DC_CACHE_TTL:-5m}
`))
	require.NoError(t, err)

	assert.Equal(t, 7070, f.Server.Port)
	assert.Equal(t, int64(1234), f.Budget.Tenants["tenant-1"])
	assert.Equal(t, 5*time.Minute, f.CacheTTL())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [not: a map"},
		{"bad period", "budget:\n  period: soon"},
		{"bad ttl", "cache:\n  ttl: forever"},
		{"negative cap", "budget:\n  tenants:\n    tenant-1: -5"},
		{"negative rate", "rates:\n  cents_per_1k:\n    openai: -1"},
		{"bad port", "server:\n  port: 99999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
