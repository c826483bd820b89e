// Package identifier finds and checksum-validates structured identifiers
// (tax IDs, company registration numbers, passport-like codes) in free text.
//
// Validation is a pure function of the input text. Unmatched candidates are
// dropped; candidates that match a pattern but fail the kind-specific
// checksum are emitted with Valid=false, because a malformed identifier next
// to a name is still weak evidence for the decision layer.
package identifier

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"watchgate/internal/screening/models"
)

// Validator scans text with per-kind patterns and applies checksum rules.
// Safe for concurrent use; all state is compiled patterns.
type Validator struct {
	taxID10      *regexp.Regexp
	taxID12      *regexp.Regexp
	registration *regexp.Regexp
	passportNum  *regexp.Regexp
	passportIntl *regexp.Regexp
}

// NewValidator compiles the identifier patterns once.
func NewValidator() *Validator {
	return &Validator{
		// 10- and 12-digit tax identification numbers.
		taxID10: regexp.MustCompile(`\b\d{10}\b`),
		taxID12: regexp.MustCompile(`\b\d{12}\b`),
		// 13-digit (legal entity) and 15-digit (sole proprietor) registration numbers.
		registration: regexp.MustCompile(`\b\d{13}\b|\b\d{15}\b`),
		// Domestic passport: 4-digit series, 6-digit number, separated.
		passportNum: regexp.MustCompile(`\b\d{4}[ №]\s?\d{6}\b`),
		// International style: two uppercase letters, seven digits.
		passportIntl: regexp.MustCompile(`\b[A-Z]{2}\d{7}\b`),
	}
}

// Validate returns every identifier candidate found in text, ordered by
// position. It never fails: malformed fragments simply do not produce output.
func (v *Validator) Validate(text string) []models.Identifier {
	var out []models.Identifier

	taken := make([]span, 0, 8)

	// Longer digit runs first so a registration number is not re-reported as
	// an embedded tax ID. Word boundaries already prevent true sub-matches;
	// the span check guards the mixed separator patterns.
	for _, loc := range v.registration.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		out = append(out, models.Identifier{
			Kind:  models.IDKindRegistration,
			Value: raw,
			Valid: validRegistration(raw),
			Raw:   raw,
			Start: loc[0],
			End:   loc[1],
		})
		taken = append(taken, span{loc[0], loc[1]})
	}

	for _, re := range []*regexp.Regexp{v.taxID12, v.taxID10} {
		for _, loc := range v.taxID(re, text, taken) {
			out = append(out, loc)
			taken = append(taken, span{loc.Start, loc.End})
		}
	}

	for _, loc := range v.passportNum.FindAllStringIndex(text, -1) {
		if overlaps(taken, loc[0], loc[1]) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		out = append(out, models.Identifier{
			Kind:  models.IDKindPassport,
			Value: digitsOnly(raw),
			Valid: true, // format rule is the only rule for passport codes
			Raw:   raw,
			Start: loc[0],
			End:   loc[1],
		})
		taken = append(taken, span{loc[0], loc[1]})
	}

	for _, loc := range v.passportIntl.FindAllStringIndex(text, -1) {
		if overlaps(taken, loc[0], loc[1]) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		out = append(out, models.Identifier{
			Kind:  models.IDKindPassport,
			Value: raw,
			Valid: true,
			Raw:   raw,
			Start: loc[0],
			End:   loc[1],
		})
	}

	sortByStart(out)
	return out
}

func (v *Validator) taxID(re *regexp.Regexp, text string, taken []span) []models.Identifier {
	var out []models.Identifier
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if overlaps(taken, loc[0], loc[1]) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		out = append(out, models.Identifier{
			Kind:  models.IDKindTaxID,
			Value: raw,
			Valid: validTaxID(raw),
			Raw:   raw,
			Start: loc[0],
			End:   loc[1],
		})
	}
	return out
}

type span struct{ start, end int }

func overlaps(taken []span, start, end int) bool {
	for _, s := range taken {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

func sortByStart(ids []models.Identifier) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Start < ids[j].Start })
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validTaxID applies the weighted mod-11 check digits.
// 10-digit numbers carry one check digit, 12-digit numbers carry two.
func validTaxID(s string) bool {
	switch len(s) {
	case 10:
		return checkDigit(s, []int{2, 4, 10, 3, 5, 9, 4, 6, 8}) == int(s[9]-'0')
	case 12:
		d11 := checkDigit(s, []int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8})
		d12 := checkDigit(s, []int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8})
		return d11 == int(s[10]-'0') && d12 == int(s[11]-'0')
	}
	return false
}

// checkDigit computes sum(digit*weight) mod 11 mod 10 over the weighted prefix.
func checkDigit(s string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(s[i]-'0') * w
	}
	return sum % 11 % 10
}

// validRegistration applies the registration-number modulus rule:
// 13-digit numbers check the first 12 digits mod 11, 15-digit numbers check
// the first 14 digits mod 13; the last digit of the remainder must equal the
// final digit.
func validRegistration(s string) bool {
	var mod uint64
	switch len(s) {
	case 13:
		mod = 11
	case 15:
		mod = 13
	default:
		return false
	}
	body, err := strconv.ParseUint(s[:len(s)-1], 10, 64)
	if err != nil {
		return false
	}
	return body%mod%10 == uint64(s[len(s)-1]-'0')
}
