// Package normalize canonicalizes raw lead/business/property field values
// into the comparable forms used as graph deduplication keys.
//
// Every function is pure and total: no I/O, no shared state, safe to call
// concurrently, and unrecognized or empty input yields "". Every function is
// idempotent, so normalized values can be re-normalized without drift.
package normalize

import (
	"regexp"
	"strings"
)

var (
	reNonDigit   = regexp.MustCompile(`\D`)
	reNameTitle  = regexp.MustCompile(`^(MR|MRS|MS|DR|PROF|REV|HON)\.?\s+`)
	reNameSuffix = regexp.MustCompile(`\s+(JUNIOR|SENIOR|JR|SR|II|III|IV)\.?$`)
	reLegalEnt   = regexp.MustCompile(`[,\s]+(LLC|INC|CORP|LTD|LP|LLP|PC|PLLC)\.?$`)
	rePunct      = regexp.MustCompile(`[^A-Z0-9 ]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

var nameSuffixes = map[string]string{
	"JUNIOR": "JR",
	"SENIOR": "SR",
}

// Phone strips everything but digits and drops a leading US country code
// from 11-digit numbers. The result is not guaranteed to be 10 digits;
// callers that need strict lengths must validate.
func Phone(raw string) string {
	digits := reNonDigit.ReplaceAllString(raw, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// Email lowercases and trims the address. Gmail addresses additionally have
// dots stripped from the local part, since Gmail delivery ignores them and
// "john.doe@gmail.com" and "johndoe@gmail.com" are the same inbox.
func Email(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if domain == "gmail.com" {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}

// Name uppercases a person name, strips a leading title token and
// standardizes generational suffixes.
func Name(raw string) string {
	name := collapse(strings.ToUpper(strings.TrimSpace(raw)))
	if name == "" {
		return ""
	}
	name = reNameTitle.ReplaceAllString(name, "")
	name = reNameSuffix.ReplaceAllStringFunc(name, func(m string) string {
		s := strings.TrimSuffix(strings.TrimSpace(m), ".")
		if std, ok := nameSuffixes[s]; ok {
			s = std
		}
		return " " + s
	})
	return strings.TrimSpace(name)
}

// CompanyName uppercases a company name, strips trailing legal-entity
// suffixes and a leading THE, removes punctuation and collapses whitespace,
// so "Acme Plumbing, LLC." and "ACME PLUMBING LLC" compare equal.
func CompanyName(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}
	for {
		stripped := reLegalEnt.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	name = strings.TrimPrefix(name, "THE ")
	name = rePunct.ReplaceAllString(name, " ")
	return collapse(name)
}

// SIC keeps digits only, left-pads to 4 and truncates to 4.
func SIC(raw string) string {
	return padDigits(raw, 4)
}

// Zip keeps digits only, left-pads to 5 and truncates to 5.
func Zip(raw string) string {
	return padDigits(raw, 5)
}

func padDigits(raw string, width int) string {
	digits := reNonDigit.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	for len(digits) < width {
		digits = "0" + digits
	}
	return digits[:width]
}

func collapse(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
