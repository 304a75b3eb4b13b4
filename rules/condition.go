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
	"fmt"
	"math"
	"strconv"
)

// Metrics is a named snapshot of metric values. Boolean metrics are
// represented as 0 (false) and 1 (true).
type Metrics map[string]float64

// Expr is a node in a parsed rule condition. Evaluation is pure: the
// same expression and metrics always yield the same result.
type Expr interface {
	Eval(m Metrics) bool
	String() string
}

// Op is a comparison operator.
type Op string

const (
	OpGT  Op = ">"
	OpLT  Op = "<"
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpEQ  Op = "=="
	OpNEQ Op = "!="
)

// Comparison compares a named metric against a constant. An unknown or
// non-finite metric evaluates to false so the containing rule fails safe
// rather than erroring the whole evaluation pass.
type Comparison struct {
	Metric string
	Op     Op
	Value  float64
}

// Eval implements Expr.
func (c Comparison) Eval(m Metrics) bool {
	v, ok := m[c.Metric]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}

	switch c.Op {
	case OpGT:
		return v > c.Value
	case OpLT:
		return v < c.Value
	case OpGTE:
		return v >= c.Value
	case OpLTE:
		return v <= c.Value
	case OpEQ:
		return v == c.Value
	case OpNEQ:
		return v != c.Value
	default:
		return false
	}
}

// String implements Expr.
func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Metric, c.Op, strconv.FormatFloat(c.Value, 'f', -1, 64))
}

// And is the logical conjunction of two expressions.
type And struct {
	Left, Right Expr
}

// Eval implements Expr.
func (a And) Eval(m Metrics) bool {
	return a.Left.Eval(m) && a.Right.Eval(m)
}

// String implements Expr.
func (a And) String() string {
	return fmt.Sprintf("(%s AND %s)", a.Left, a.Right)
}

// Or is the logical disjunction of two expressions.
type Or struct {
	Left, Right Expr
}

// Eval implements Expr.
func (o Or) Eval(m Metrics) bool {
	return o.Left.Eval(m) || o.Right.Eval(m)
}

// String implements Expr.
func (o Or) String() string {
	return fmt.Sprintf("(%s OR %s)", o.Left, o.Right)
}
