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

package rules

import (
	"errors"
	"math"
	"testing"
)

func TestParseAndEval(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		metrics   Metrics
		want      bool
	}{
		{
			name:      "simple greater than true",
			condition: "ctr > 0.05",
			metrics:   Metrics{"ctr": 0.08},
			want:      true,
		},
		{
			name:      "simple greater than false",
			condition: "ctr > 0.05",
			metrics:   Metrics{"ctr": 0.02},
			want:      false,
		},
		{
			name:      "greater or equal boundary",
			condition: "spend >= 100",
			metrics:   Metrics{"spend": 100},
			want:      true,
		},
		{
			name:      "less than",
			condition: "conversion < 0.01",
			metrics:   Metrics{"conversion": 0.005},
			want:      true,
		},
		{
			name:      "equality",
			condition: "active == 1",
			metrics:   Metrics{"active": 1},
			want:      true,
		},
		{
			name:      "not equal",
			condition: "errors != 0",
			metrics:   Metrics{"errors": 3},
			want:      true,
		},
		{
			name:      "and both hold",
			condition: "ctr > 0.05 AND spend < 500",
			metrics:   Metrics{"ctr": 0.06, "spend": 200},
			want:      true,
		},
		{
			name:      "and one fails",
			condition: "ctr > 0.05 AND spend < 500",
			metrics:   Metrics{"ctr": 0.06, "spend": 900},
			want:      false,
		},
		{
			name:      "or short circuit",
			condition: "ctr > 0.05 OR spend < 500",
			metrics:   Metrics{"ctr": 0.01, "spend": 200},
			want:      true,
		},
		{
			name:      "and binds tighter than or",
			condition: "a > 1 OR b > 1 AND c > 1",
			metrics:   Metrics{"a": 2, "b": 0, "c": 0},
			want:      true,
		},
		{
			name:      "parentheses override precedence",
			condition: "(a > 1 OR b > 1) AND c > 1",
			metrics:   Metrics{"a": 2, "b": 0, "c": 0},
			want:      false,
		},
		{
			name:      "unknown metric is false",
			condition: "missing > 0",
			metrics:   Metrics{"ctr": 0.5},
			want:      false,
		},
		{
			name:      "unknown metric under not-equal is false",
			condition: "missing != 5",
			metrics:   Metrics{},
			want:      false,
		},
		{
			name:      "nan metric is false",
			condition: "ctr > 0",
			metrics:   Metrics{"ctr": math.NaN()},
			want:      false,
		},
		{
			name:      "negative constant",
			condition: "delta > -0.5",
			metrics:   Metrics{"delta": -0.2},
			want:      true,
		},
		{
			name:      "dotted metric name",
			condition: "ads.ctr >= 0.1",
			metrics:   Metrics{"ads.ctr": 0.1},
			want:      true,
		},
		{
			name:      "lowercase keywords",
			condition: "a > 1 and b > 1",
			metrics:   Metrics{"a": 2, "b": 2},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseCondition(tt.condition)
			if err != nil {
				t.Fatalf("ParseCondition(%q) failed: %v", tt.condition, err)
			}
			if got := expr.Eval(tt.metrics); got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.condition, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		condition string
	}{
		{"empty", ""},
		{"bare metric", "ctr"},
		{"missing value", "ctr >"},
		{"missing operator", "ctr 0.5"},
		{"single equals", "ctr = 0.5"},
		{"bare bang", "ctr ! 0.5"},
		{"unclosed paren", "(ctr > 0.5"},
		{"dangling and", "ctr > 0.5 AND"},
		{"metric on both sides", "ctr > spend"},
		{"trailing garbage", "ctr > 0.5 spend"},
		{"malformed number", "ctr > 1.2.3"},
		{"stray character", "ctr > 0.5 & spend < 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCondition(tt.condition)
			if err == nil {
				t.Fatalf("ParseCondition(%q) should have failed", tt.condition)
			}
			var invalid *InvalidConditionError
			if !errors.As(err, &invalid) {
				t.Errorf("error should be *InvalidConditionError, got %T", err)
			}
		})
	}
}

func TestEvalIsDeterministic(t *testing.T) {
	expr, err := ParseCondition("ctr > 0.05 AND (spend < 500 OR conversion >= 0.02)")
	if err != nil {
		t.Fatalf("ParseCondition failed: %v", err)
	}

	metrics := Metrics{"ctr": 0.06, "spend": 700, "conversion": 0.02}
	first := expr.Eval(metrics)
	for i := 0; i < 100; i++ {
		if got := expr.Eval(metrics); got != first {
			t.Fatalf("evaluation %d differed: got %v, want %v", i, got, first)
		}
	}
}

func TestExprString(t *testing.T) {
	expr, err := ParseCondition("ctr > 0.05 AND spend < 500")
	if err != nil {
		t.Fatalf("ParseCondition failed: %v", err)
	}
	want := "(ctr > 0.05 AND spend < 500)"
	if got := expr.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
