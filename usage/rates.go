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

package usage

import "fmt"

// Provider rates are stored in cents per 1K tokens to avoid floating
// point issues. All rates are USD.

// defaultRates is the built-in rate table. Unknown providers fall back
// to the "default" entry and the estimate is flagged approximate.
var defaultRates = map[string]int64{
	"openai":    200, // $0.02 per 1K tokens
	"anthropic": 300, // $0.03 per 1K tokens
	"gemini":    100, // $0.01 per 1K tokens
	"default":   300, // conservative fallback
}

// RateTable maps provider identifiers to cents-per-1K-token rates.
type RateTable struct {
	rates       map[string]int64
	defaultRate int64
}

// NewRateTable creates a rate table from configured rates. A zero or
// missing defaultRate falls back to the built-in conservative default.
func NewRateTable(rates map[string]int64, defaultRate int64) *RateTable {
	if defaultRate <= 0 {
		defaultRate = defaultRates["default"]
	}
	merged := make(map[string]int64, len(rates))
	for provider, rate := range rates {
		if rate > 0 {
			merged[provider] = rate
		}
	}
	return &RateTable{rates: merged, defaultRate: defaultRate}
}

// NewDefaultRateTable creates a rate table with the built-in rates.
func NewDefaultRateTable() *RateTable {
	return NewRateTable(defaultRates, defaultRates["default"])
}

// CostCents calculates the cost in cents for tokens routed to provider.
// The second return value reports whether the rate was exact (provider
// known) or approximate (default fallback applied).
func (t *RateTable) CostCents(provider string, tokens int) (int64, bool) {
	if tokens < 0 {
		tokens = 0
	}
	rate, exact := t.rates[provider]
	if !exact || provider == "default" {
		rate = t.defaultRate
		exact = false
	}
	return int64(tokens) * rate / 1000, exact
}

// Rate returns the configured rate for a provider and whether it exists.
func (t *RateTable) Rate(provider string) (int64, bool) {
	rate, ok := t.rates[provider]
	return rate, ok
}

// FormatCostToDollars converts cents to dollar string (e.g., 135 cents -> "$1.35")
func FormatCostToDollars(cents int64) string {
	dollars := float64(cents) / 100.0
	return fmt.Sprintf("$%.2f", dollars)
}
