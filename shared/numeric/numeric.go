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

// Package numeric centralizes the numeric safety helpers used by the
// reward calculator and the budget guard. All functions are pure and
// recover from pathological inputs (NaN, Infinity, zero divisors) by
// substitution rather than by returning errors.
package numeric

import "math"

// Sanitize replaces NaN and Infinity with the given fallback.
func Sanitize(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Clamp limits v to the closed interval [lo, hi].
// If lo > hi the bounds are swapped.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize maps v from [lo, hi] to [0, 1], clamping values outside the
// bounds. A degenerate range (lo == hi) yields 0.5 since there is no
// meaningful position within it.
func Normalize(v, lo, hi float64) float64 {
	v = Sanitize(v, lo)
	if lo == hi {
		return 0.5
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Clamp((v-lo)/(hi-lo), 0, 1)
}

// SafeDivide returns num/den, or fallback when den is zero or the result
// would not be finite.
func SafeDivide(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return Sanitize(num/den, fallback)
}

// PercentOf returns part/whole as a percentage in [0, 100].
// A zero or negative whole yields 0 rather than a division error.
func PercentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return Clamp(Sanitize(part/whole*100, 0), 0, 100)
}
