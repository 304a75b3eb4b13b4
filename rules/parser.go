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
	"strconv"
	"strings"
	"unicode"
)

// The condition language is deliberately small: comparisons of named
// metrics against numeric constants, combined with AND/OR and
// parentheses. No function calls, no side effects.
//
//	expr       := term { OR term }
//	term       := factor { AND factor }
//	factor     := "(" expr ")" | comparison
//	comparison := ident op number
//	op         := ">" | "<" | ">=" | "<=" | "==" | "!="

// InvalidConditionError reports a malformed rule condition. The rule is
// treated as never-firing; sibling rules are unaffected.
type InvalidConditionError struct {
	Condition string
	Pos       int
	Message   string
}

// Error implements the error interface.
func (e *InvalidConditionError) Error() string {
	return fmt.Sprintf("invalid condition %q at position %d: %s", e.Condition, e.Pos, e.Message)
}

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenOp
	tokenAnd
	tokenOr
	tokenLParen
	tokenRParen
	tokenEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	condition string
	tokens    []token
	idx       int
}

// ParseCondition parses condition text into an expression tree.
func ParseCondition(condition string) (Expr, error) {
	tokens, err := lex(condition)
	if err != nil {
		return nil, err
	}

	p := &parser{condition: condition, tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, p.errorf(tok.pos, "unexpected %q", tok.text)
	}
	return expr, nil
}

func lex(condition string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(condition) {
		c := condition[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case c == '>' || c == '<':
			if i+1 < len(condition) && condition[i+1] == '=' {
				tokens = append(tokens, token{tokenOp, condition[i : i+2], i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenOp, string(c), i})
				i++
			}
		case c == '=' || c == '!':
			if i+1 < len(condition) && condition[i+1] == '=' {
				tokens = append(tokens, token{tokenOp, condition[i : i+2], i})
				i += 2
			} else {
				return nil, &InvalidConditionError{condition, i, fmt.Sprintf("unexpected %q", string(c))}
			}
		case unicode.IsDigit(rune(c)) || c == '-' || c == '.':
			start := i
			i++
			for i < len(condition) && (unicode.IsDigit(rune(condition[i])) || condition[i] == '.') {
				i++
			}
			text := condition[start:i]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, &InvalidConditionError{condition, start, fmt.Sprintf("malformed number %q", text)}
			}
			tokens = append(tokens, token{tokenNumber, text, start})
		case unicode.IsLetter(rune(c)) || c == '_':
			start := i
			for i < len(condition) && (unicode.IsLetter(rune(condition[i])) || unicode.IsDigit(rune(condition[i])) || condition[i] == '_' || condition[i] == '.') {
				i++
			}
			text := condition[start:i]
			switch strings.ToUpper(text) {
			case "AND":
				tokens = append(tokens, token{tokenAnd, text, start})
			case "OR":
				tokens = append(tokens, token{tokenOr, text, start})
			default:
				tokens = append(tokens, token{tokenIdent, text, start})
			}
		default:
			return nil, &InvalidConditionError{condition, i, fmt.Sprintf("unexpected %q", string(c))}
		}
	}
	tokens = append(tokens, token{tokenEOF, "", len(condition)})
	return tokens, nil
}

func (p *parser) peek() token {
	return p.tokens[p.idx]
}

func (p *parser) next() token {
	tok := p.tokens[p.idx]
	if tok.kind != tokenEOF {
		p.idx++
	}
	return tok
}

func (p *parser) errorf(pos int, format string, args ...interface{}) error {
	return &InvalidConditionError{p.condition, pos, fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenOr {
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokenAnd {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (Expr, error) {
	tok := p.peek()
	if tok.kind == tokenLParen {
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, p.errorf(closing.pos, "expected closing parenthesis")
		}
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	ident := p.next()
	if ident.kind != tokenIdent {
		return nil, p.errorf(ident.pos, "expected metric name, got %q", ident.text)
	}

	op := p.next()
	if op.kind != tokenOp {
		return nil, p.errorf(op.pos, "expected comparison operator after %q", ident.text)
	}

	num := p.next()
	if num.kind != tokenNumber {
		return nil, p.errorf(num.pos, "expected number after %q", op.text)
	}
	value, err := strconv.ParseFloat(num.text, 64)
	if err != nil {
		return nil, p.errorf(num.pos, "malformed number %q", num.text)
	}

	return Comparison{Metric: ident.text, Op: Op(op.text), Value: value}, nil
}
