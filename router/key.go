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

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CacheKey derives the deterministic cache fingerprint of a request.
// RequestID and Timestamp never participate: a retry of the same logical
// request must map to the same entry. Personalization participates only
// when enabled.
func CacheKey(req Request) string {
	h := sha256.New()

	writeField := func(name, value string) {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(value))
		h.Write([]byte{0})
	}

	writeField("tenant", req.TenantID)
	writeField("provider", strings.ToLower(req.Provider))
	writeField("model", strings.ToLower(req.Model))
	writeField("language", strings.ToLower(req.Language))
	writeField("prompt", normalizePrompt(req.Prompt))

	if req.PersonalizationEnabled && len(req.Personalization) > 0 {
		keys := make([]string, 0, len(req.Personalization))
		for k := range req.Personalization {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeField("p:"+k, req.Personalization[k])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// normalizePrompt trims and collapses whitespace so cosmetic formatting
// differences share a cache entry.
func normalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(prompt), " ")
}
