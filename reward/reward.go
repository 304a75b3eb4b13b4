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

// Package reward computes bounded reward scores from raw metric
// snapshots. A score is always a finite value in [0, 1], regardless of
// input: NaN and Inf inputs fall back to a neutral default instead of
// poisoning downstream decisions.
package reward

import (
	"math"
	"sort"

	"axonflow/decisioncore/shared/numeric"
)

// RewardMin and RewardMax bound every computed score.
const (
	RewardMin = 0.0
	RewardMax = 1.0

	// DefaultNeutral is the contribution of a metric whose value is
	// missing or non-finite.
	DefaultNeutral = 0.5
)

// Bounds describes the expected raw range of one metric. Values are
// normalized into [0, 1] against these bounds; values outside clamp to
// the nearest edge.
type Bounds struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Config declares which metrics contribute to the score and how.
type Config struct {
	// Weights maps metric name to relative weight. Non-positive weights
	// are dropped.
	Weights map[string]float64 `yaml:"weights" json:"weights"`

	// Bounds maps metric name to its expected raw range. A weighted
	// metric without bounds defaults to [0, 1].
	Bounds map[string]Bounds `yaml:"bounds" json:"bounds"`

	// NeutralDefault replaces missing or non-finite metric values.
	// Zero means DefaultNeutral.
	NeutralDefault float64 `yaml:"neutral_default" json:"neutral_default"`
}

// Contribution explains one metric's share of a computed score.
type Contribution struct {
	Metric     string  `json:"metric"`
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
	Weight     float64 `json:"weight"`
	Neutral    bool    `json:"neutral,omitempty"`
}

// Calculator computes reward scores from a fixed configuration.
// Computation is pure and deterministic: the same config and metrics
// always produce the same score.
type Calculator struct {
	weights map[string]float64
	bounds  map[string]Bounds
	neutral float64
}

// NewCalculator builds a calculator from config, dropping non-positive
// weights and sanitizing the neutral default into [0, 1].
func NewCalculator(cfg Config) *Calculator {
	weights := make(map[string]float64, len(cfg.Weights))
	for name, w := range cfg.Weights {
		if w > 0 && !math.IsNaN(w) && !math.IsInf(w, 0) {
			weights[name] = w
		}
	}

	bounds := make(map[string]Bounds, len(cfg.Bounds))
	for name, b := range cfg.Bounds {
		bounds[name] = b
	}

	neutral := cfg.NeutralDefault
	if neutral == 0 {
		neutral = DefaultNeutral
	}
	neutral = numeric.Clamp(numeric.Sanitize(neutral, DefaultNeutral), RewardMin, RewardMax)

	return &Calculator{weights: weights, bounds: bounds, neutral: neutral}
}

// Compute returns the weighted reward score for a metrics snapshot.
func (c *Calculator) Compute(metrics map[string]float64) float64 {
	score, _ := c.ComputeWithBreakdown(metrics)
	return score
}

// ComputeWithBreakdown returns the score plus per-metric contributions,
// ordered by metric name. With no usable weights the score is neutral.
func (c *Calculator) ComputeWithBreakdown(metrics map[string]float64) (float64, []Contribution) {
	if len(c.weights) == 0 {
		return c.neutral, nil
	}

	names := make([]string, 0, len(c.weights))
	for name := range c.weights {
		names = append(names, name)
	}
	sort.Strings(names)

	var weightedSum, totalWeight float64
	contributions := make([]Contribution, 0, len(names))

	for _, name := range names {
		weight := c.weights[name]
		raw, present := metrics[name]

		var normalized float64
		neutral := false
		if !present || math.IsNaN(raw) || math.IsInf(raw, 0) {
			normalized = c.neutral
			neutral = true
		} else {
			b, ok := c.bounds[name]
			if !ok || b.Max <= b.Min {
				b = Bounds{Min: 0, Max: 1}
			}
			normalized = numeric.Normalize(raw, b.Min, b.Max)
		}

		weightedSum += weight * normalized
		totalWeight += weight
		contributions = append(contributions, Contribution{
			Metric:     name,
			Raw:        raw,
			Normalized: normalized,
			Weight:     weight,
			Neutral:    neutral,
		})
	}

	score := numeric.SafeDivide(weightedSum, totalWeight, c.neutral)
	return numeric.Clamp(score, RewardMin, RewardMax), contributions
}
