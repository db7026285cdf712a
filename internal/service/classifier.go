package service

import (
	"fmt"
	"regexp"
	"strings"
)

// Statements reach the database only if they start with SELECT and contain
// none of these words. The check is lexical: a banned word inside a string
// literal or a comment is rejected too, which is accepted over-blocking.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER",
	"PRAGMA", "ATTACH", "TRANSACTION", "REPLACE", "CREATE",
}

var (
	leadingToken     = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*`)
	forbiddenMatcher = compileKeywords(forbiddenKeywords)
)

func compileKeywords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return out
}

type RejectionRule string

const (
	RuleNotRead          RejectionRule = "not_read_query"
	RuleForbiddenKeyword RejectionRule = "forbidden_keyword"
)

// RejectionError explains why a statement was not executed. Keyword is set for
// forbidden-keyword rejections and for non-read statements that lead with a
// forbidden keyword.
type RejectionError struct {
	Rule    RejectionRule
	Keyword string
}

func (e *RejectionError) Error() string {
	if e.Rule == RuleForbiddenKeyword {
		return fmt.Sprintf("Command %s is forbidden.", e.Keyword)
	}
	return "Only SELECT queries are allowed."
}

// Classify returns the statement to execute, trimmed but otherwise untouched,
// or a *RejectionError.
func Classify(raw string) (string, error) {
	statement := strings.TrimSpace(raw)
	upper := strings.ToUpper(statement)

	if lead := leadingToken.FindString(upper); lead != "SELECT" {
		rejection := &RejectionError{Rule: RuleNotRead}
		for _, w := range forbiddenKeywords {
			if lead == w {
				rejection.Keyword = w
				break
			}
		}
		return "", rejection
	}

	// The whole text is scanned, so "SELECT 1; DROP TABLE x" names DROP here.
	// Any other stacked statement fails in repository.SingleStatement.
	for i, re := range forbiddenMatcher {
		if re.MatchString(upper) {
			return "", &RejectionError{Rule: RuleForbiddenKeyword, Keyword: forbiddenKeywords[i]}
		}
	}

	return statement, nil
}
