package password

import (
	"strings"
	"unicode"
)

// Strength buckets a candidate password by score and length.
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthMedium     Strength = "medium"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very-strong"
)

const (
	// MinLength and MaxLength bound accepted password lengths in bytes.
	MinLength = 8
	MaxLength = 128

	// MaxScore is the highest achievable character-class score.
	MaxScore = 4
)

// commonPasswords is the fixed denylist of passwords rejected outright,
// matched case-insensitively.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwertyuiop": {},
	"letmein1":   {},
	"iloveyou":   {},
	"sunshine":   {},
	"admin123":   {},
	"welcome1":   {},
	"monkey123":  {},
	"dragon123":  {},
	"football":   {},
	"baseball":   {},
	"trustno1":   {},
	"superman":   {},
	"princess":   {},
	"qwerty123":  {},
}

// Report is the outcome of evaluating one candidate password.
// Errors make the candidate invalid; warnings do not.
type Report struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Score    int
	Strength Strength
}

// Evaluate scores candidate against the composable policy rules. It is pure
// and side-effect-free, so registration, change-password, and reset-password
// all share identical semantics.
func Evaluate(candidate string) Report {
	report := Report{}

	switch {
	case len(candidate) < MinLength:
		report.Errors = append(report.Errors, "password must be at least 8 characters")
	case len(candidate) > MaxLength:
		report.Errors = append(report.Errors, "password must be at most 128 characters")
	}

	if _, banned := commonPasswords[strings.ToLower(candidate)]; banned {
		report.Errors = append(report.Errors, "password is too common")
	}
	if candidate != "" && isSingleRepeat(candidate) {
		report.Errors = append(report.Errors, "password must not repeat a single character")
	}
	if candidate != "" && isAllDigits(candidate) {
		report.Errors = append(report.Errors, "password must not be all digits")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if hasUpper {
		report.Score++
	} else {
		report.Errors = append(report.Errors, "password must contain an uppercase letter")
	}
	if hasLower {
		report.Score++
	} else {
		report.Errors = append(report.Errors, "password must contain a lowercase letter")
	}
	if hasDigit {
		report.Score++
	} else {
		report.Errors = append(report.Errors, "password must contain a digit")
	}
	if hasSymbol {
		report.Score++
	} else {
		// Symbol absence caps the score but is not a hard failure.
		report.Warnings = append(report.Warnings, "consider adding a symbol")
	}

	report.Valid = len(report.Errors) == 0
	report.Strength = strengthFor(report.Score, len(candidate))
	return report
}

func strengthFor(score, length int) Strength {
	switch {
	case score >= MaxScore && length >= 12:
		return StrengthVeryStrong
	case score >= MaxScore:
		return StrengthStrong
	case score >= 3:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

func isSingleRepeat(s string) bool {
	runes := []rune(s)
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
