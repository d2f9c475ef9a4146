package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// literal builds a replacement function that discards the match entirely
func literal(mask string) func(string) string {
	return func(string) string { return mask }
}

// hashPhone pseudonymizes a phone number with an unsalted SHA-256 digest of
// the exact matched substring. The same number always maps to the same
// token, which allows correlation downstream without disclosing the number.
func hashPhone(match string) string {
	sum := sha256.Sum256([]byte(match))
	return "[HASHED PHONE: " + hex.EncodeToString(sum[:]) + "]"
}

// DefaultRules returns the ordered rule table applied to raw content.
// Card numbers must run before phone numbers: a 13-16 digit card sequence
// would otherwise also match the generic digit-group phone pattern.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "credit_card",
			Pattern: regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
			Replace: literal("[REDACTED CREDIT CARD]"),
		},
		{
			Name:    "expiry_date",
			Pattern: regexp.MustCompile(`\b(0[1-9]|1[0-2])/([0-9]{2}|[0-9]{4})\b`),
			Replace: literal("[REDACTED EXPIRY]"),
		},
		{
			Name:    "street_address",
			Pattern: regexp.MustCompile(`\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`),
			Replace: literal("[REDACTED ADDRESS]"),
		},
		{
			Name:    "phone_number",
			Pattern: regexp.MustCompile(`\+?(?:\d[\s\-.()]?){7,15}\d`),
			Replace: hashPhone,
		},
	}
}
