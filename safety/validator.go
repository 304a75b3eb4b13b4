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

// Package safety scans generated content for disallowed claims before it
// may be published. Matching is case-insensitive substring matching over
// configured phrase sets per category: cheap, deterministic, auditable.
// The validator never mutates the input; callers decide whether to block,
// redact, or flag.
package safety

import (
	"sort"
	"strings"
)

// Category identifies the kind of compliance risk a phrase carries.
type Category string

const (
	CategoryMedicalClaim   Category = "medical_claim"
	CategoryFinancialClaim Category = "financial_claim"
	CategoryBannedPhrase   Category = "banned_phrase"
)

// Severity represents the risk level of a detected phrase.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for blocking-threshold comparison.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at or above the given threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return severityRank[s] >= severityRank[threshold]
}

// Violation represents a single matched phrase in scanned text.
type Violation struct {
	Category   Category `json:"category"`
	Term       string   `json:"term"`
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
	Severity   Severity `json:"severity"`
}

// Blocking reports whether this violation is severe enough to block
// publication at the given threshold.
func (v Violation) Blocking(threshold Severity) bool {
	return v.Severity.AtLeast(threshold)
}

// phraseSet is one category's configured phrases with a shared severity.
type phraseSet struct {
	category Category
	severity Severity
	phrases  []string // lowercase, sorted for deterministic scan order
}

// Validator scans free text against configured phrase sets.
type Validator struct {
	sets []phraseSet
}

// Config configures the validator. Phrases listed here are added on top
// of the built-in defaults; set DisableDefaults to start from empty sets.
type Config struct {
	MedicalClaims   []string
	FinancialClaims []string
	BannedPhrases   []string
	DisableDefaults bool
}

// Default phrase sets. These are deliberately conservative: each phrase
// is a claim that no compliant marketing copy should make verbatim.
var (
	defaultMedicalClaims = []string{
		"clinically proven to cure",
		"cures cancer",
		"cures diabetes",
		"eliminates all pain",
		"fda approved treatment",
		"guaranteed weight loss",
		"miracle cure",
		"reverses aging",
		"treats depression",
	}
	defaultFinancialClaims = []string{
		"double your money",
		"get rich quick",
		"guaranteed profit",
		"guaranteed returns",
		"insider tip",
		"no risk investment",
		"risk-free investment",
	}
	defaultBannedPhrases = []string{
		"limited time offer expires tonight",
		"you have been selected",
	}
)

// NewValidator creates a validator from the given config.
func NewValidator(config Config) *Validator {
	medical := config.MedicalClaims
	financial := config.FinancialClaims
	banned := config.BannedPhrases
	if !config.DisableDefaults {
		medical = append(medical, defaultMedicalClaims...)
		financial = append(financial, defaultFinancialClaims...)
		banned = append(banned, defaultBannedPhrases...)
	}

	return &Validator{
		sets: []phraseSet{
			{category: CategoryMedicalClaim, severity: SeverityHigh, phrases: normalizePhrases(medical)},
			{category: CategoryFinancialClaim, severity: SeverityHigh, phrases: normalizePhrases(financial)},
			{category: CategoryBannedPhrase, severity: SeverityCritical, phrases: normalizePhrases(banned)},
		},
	}
}

// NewDefaultValidator creates a validator with only the built-in phrase sets.
func NewDefaultValidator() *Validator {
	return NewValidator(Config{})
}

// normalizePhrases lowercases, deduplicates, and sorts phrases so that scan
// output order is deterministic regardless of configuration order.
func normalizePhrases(phrases []string) []string {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Scan returns all violations found in text. Clean text, empty text, and
// whitespace-only text all return an empty list. The input is never modified.
func (v *Validator) Scan(text string) []Violation {
	violations := []Violation{}
	if strings.TrimSpace(text) == "" {
		return violations
	}

	lower := strings.ToLower(text)
	for _, set := range v.sets {
		for _, phrase := range set.phrases {
			for start := 0; ; {
				idx := strings.Index(lower[start:], phrase)
				if idx < 0 {
					break
				}
				matchStart := start + idx
				matchEnd := matchStart + len(phrase)
				violations = append(violations, Violation{
					Category:   set.category,
					Term:       phrase,
					StartIndex: matchStart,
					EndIndex:   matchEnd,
					Severity:   set.severity,
				})
				start = matchEnd
			}
		}
	}

	return violations
}

// HasBlocking reports whether any violation meets the blocking threshold.
func HasBlocking(violations []Violation, threshold Severity) bool {
	for _, v := range violations {
		if v.Blocking(threshold) {
			return true
		}
	}
	return false
}
