// Package validation screens user-supplied input for the catalog API:
// free-text search terms, entity ids and NAFDAC registration numbers.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Pre-compiled patterns, compiled once at package initialization.
var (
	// Search terms: alphanumeric plus safe punctuation found in drug
	// and manufacturer names.
	termRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+'/(),%]+$`)

	// NAFDAC registration numbers: two alphanumerics, a dash, four
	// digits, e.g. "A4-1234" or "04-5678".
	nafdacRegex = regexp.MustCompile(`^[A-Z0-9]{2}-[0-9]{4}$`)
)

// dangerousPatterns are screened with strings.Contains, which is much
// faster than regex for plain substrings.
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "onload=", "onerror=", "onclick=",
	"eval(", "expression(", "@import",
	"' or ", "\" or ", "union select", "drop table", "delete from",
	"insert into", "update set", "--", "/*", "*/", "exec(", "execute(",
	"; ", "| ", "`", "$(", "${",
	"../", "..\\", "%2e%2e", "file://",
}

const maxTermLength = 100

// ValidateSearchTerm checks a free-text search term. An empty term is
// valid: search treats it as "no query".
func ValidateSearchTerm(term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	if len(term) > maxTermLength {
		return fmt.Errorf("search term too long: %d characters (max %d)", len(term), maxTermLength)
	}

	lower := strings.ToLower(term)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("search term contains disallowed sequence")
		}
	}

	if !termRegex.MatchString(term) {
		return fmt.Errorf("search term contains unsupported characters")
	}

	return nil
}

// ValidateEntityID checks that an id parameter is a well-formed UUID.
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("id must be a valid UUID: %w", err)
	}
	return nil
}

// NormalizeNAFDACCode uppercases and trims a registration number.
func NormalizeNAFDACCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateNAFDACCode checks the shape of a NAFDAC registration number
// after normalization.
func ValidateNAFDACCode(code string) error {
	code = NormalizeNAFDACCode(code)
	if code == "" {
		return fmt.Errorf("code cannot be empty")
	}
	if !nafdacRegex.MatchString(code) {
		return fmt.Errorf("code %q is not a valid NAFDAC number (expected e.g. A4-1234)", code)
	}
	return nil
}
