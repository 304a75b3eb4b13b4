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

package router

import "strings"

// minTokens floors every estimate: even an empty prompt costs a minimal
// completion.
const minTokens = 16

// tokenMultipliers adjust the ~4 chars/token baseline per provider
// tokenizer. Unknown providers use 1.0.
var tokenMultipliers = map[string]float64{
	"openai":    1.0,
	"anthropic": 1.1,
	"gemini":    0.9,
}

// EstimateTokens estimates the token footprint of a prompt for a
// provider. Deterministic, never errors: malformed or empty input yields
// the floor.
func EstimateTokens(provider, prompt string) int {
	base := len(strings.TrimSpace(prompt)) / 4

	multiplier, ok := tokenMultipliers[strings.ToLower(provider)]
	if !ok {
		multiplier = 1.0
	}

	tokens := int(float64(base) * multiplier)
	if tokens < minTokens {
		return minTokens
	}
	return tokens
}
