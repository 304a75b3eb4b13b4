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

// Package brief turns per-entity performance scores into the recommended
// actions of a periodic brief. Generation is pure: the same tenant,
// scores and period always produce byte-identical actions, so a retried
// brief run cannot duplicate work downstream.
package brief

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
)

// Classification buckets an entity's score against the cohort median.
type Classification string

const (
	ClassWinner  Classification = "winner"
	ClassLaggard Classification = "laggard"
	ClassSteady  Classification = "steady"
)

// DefaultThreshold is the distance from the median beyond which an
// entity counts as a winner or laggard.
const DefaultThreshold = 0.2

// Action is one recommended action in a brief. IdempotencyKey is stable
// across retries of the same (tenant, entity, period, classification).
type Action struct {
	IdempotencyKey string         `json:"idempotency_key"`
	TenantID       string         `json:"tenant_id"`
	EntityID       string         `json:"entity_id"`
	Period         string         `json:"period"`
	Classification Classification `json:"classification"`
	Type           string         `json:"type"`
	Description    string         `json:"description"`
	Score          float64        `json:"score"`
	Median         float64        `json:"median"`
}

// Generator classifies entities and emits actions.
type Generator struct {
	threshold float64
}

// NewGenerator creates a generator. A non-positive or non-finite
// threshold falls back to DefaultThreshold.
func NewGenerator(threshold float64) *Generator {
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		threshold = DefaultThreshold
	}
	return &Generator{threshold: threshold}
}

// Classify buckets a single score against the cohort median. Non-finite
// scores are steady: an unmeasurable entity must not trigger actions.
func (g *Generator) Classify(score, median float64) Classification {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return ClassSteady
	}
	switch {
	case score > median+g.threshold:
		return ClassWinner
	case score < median-g.threshold:
		return ClassLaggard
	default:
		return ClassSteady
	}
}

// GenerateActions classifies every entity against the cohort median and
// returns actions for winners and laggards, sorted by idempotency key.
// Steady entities produce no action. An empty cohort produces no
// actions.
func (g *Generator) GenerateActions(tenantID string, scoresByEntity map[string]float64, period string) []Action {
	median, ok := cohortMedian(scoresByEntity)
	if !ok {
		return []Action{}
	}

	actions := make([]Action, 0, len(scoresByEntity))
	for entityID, score := range scoresByEntity {
		class := g.Classify(score, median)
		if class == ClassSteady {
			continue
		}
		actions = append(actions, Action{
			IdempotencyKey: IdempotencyKey(tenantID, entityID, period, class),
			TenantID:       tenantID,
			EntityID:       entityID,
			Period:         period,
			Classification: class,
			Type:           actionType(class),
			Description:    describe(entityID, class),
			Score:          score,
			Median:         median,
		})
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].IdempotencyKey < actions[j].IdempotencyKey
	})
	return actions
}

// IdempotencyKey derives the stable dedupe key for one recommendation.
func IdempotencyKey(tenantID, entityID, period string, class Classification) string {
	sum := sha256.Sum256([]byte(tenantID + "|" + entityID + "|" + period + "|" + string(class)))
	return hex.EncodeToString(sum[:])
}

func actionType(class Classification) string {
	switch class {
	case ClassWinner:
		return "scale_up"
	case ClassLaggard:
		return "review"
	default:
		return ""
	}
}

func describe(entityID string, class Classification) string {
	switch class {
	case ClassWinner:
		return fmt.Sprintf("%s outperformed the cohort this period; consider shifting budget toward it", entityID)
	case ClassLaggard:
		return fmt.Sprintf("%s underperformed the cohort this period; review targeting and creative", entityID)
	default:
		return ""
	}
}

// cohortMedian computes the median over finite scores. Returns false
// when no entity has a finite score.
func cohortMedian(scoresByEntity map[string]float64) (float64, bool) {
	scores := make([]float64, 0, len(scoresByEntity))
	for _, s := range scoresByEntity {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		scores = append(scores, s)
	}
	if len(scores) == 0 {
		return 0, false
	}

	sort.Float64s(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return scores[mid], true
	}
	return (scores[mid-1] + scores[mid]) / 2, true
}
