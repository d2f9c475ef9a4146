package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.RedactionConfig{
		Delimiter: ",",
		SensitiveFields: []string{
			"CreditCardNumber", "CardNumber", "CCNumber",
			"ExpirationDate", "ExpiryDate", "Expiry", "Expiration",
		},
	}
	return New(cfg, &logger.Logger{Logger: zap.NewNop()})
}

func phoneDigest(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return "[HASHED PHONE: " + hex.EncodeToString(sum[:]) + "]"
}

func TestRedactCSV(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("SensitiveColumnGovernedByFieldRule", func(t *testing.T) {
		input := "CustomerID,CreditCardNumber,Phone\n1,4111111111111111,555-123-4567"

		result, err := engine.Redact(input)
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}

		lines := strings.Split(result.Redacted, "\n")
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(lines))
		}

		fields := strings.Split(lines[1], ",")
		if len(fields) != 3 {
			t.Fatalf("Expected 3 fields, got %d: %q", len(fields), lines[1])
		}

		// The pattern pass already turned the card number into its mask;
		// the field pass must still overwrite the whole cell.
		if fields[1] != "[REDACTED]" {
			t.Errorf("CreditCardNumber cell = %q, want [REDACTED]", fields[1])
		}

		// Phone is not in the sensitive set; it keeps the pattern-pass hash.
		if fields[2] != phoneDigest("555-123-4567") {
			t.Errorf("Phone cell = %q, want deterministic digest", fields[2])
		}

		if fields[0] != "1" {
			t.Errorf("CustomerID cell = %q, want passthrough", fields[0])
		}

		if result.RowsProcessed != 1 {
			t.Errorf("RowsProcessed = %d, want 1", result.RowsProcessed)
		}
	})

	t.Run("DigestIsDeterministic", func(t *testing.T) {
		input := "Notes,Phone\nfirst,555-123-4567\nsecond,555-123-4567"

		result, err := engine.Redact(input)
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}

		lines := strings.Split(result.Redacted, "\n")
		first := strings.Split(lines[1], ",")[1]
		second := strings.Split(lines[2], ",")[1]
		if first != second {
			t.Errorf("Same phone produced different digests: %q vs %q", first, second)
		}

		digest := strings.TrimSuffix(strings.TrimPrefix(first, "[HASHED PHONE: "), "]")
		if len(digest) != 64 {
			t.Errorf("Digest length = %d, want 64 hex characters", len(digest))
		}
	})

	t.Run("BlankLinesDropped", func(t *testing.T) {
		input := "Name,City\nalice,Springfield\n\n   \nbob,Shelbyville\n"

		result, err := engine.Redact(input)
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}

		want := "Name,City\nalice,Springfield\nbob,Shelbyville"
		if result.Redacted != want {
			t.Errorf("Redacted = %q, want %q", result.Redacted, want)
		}
		if result.RowsProcessed != 2 {
			t.Errorf("RowsProcessed = %d, want 2", result.RowsProcessed)
		}
	})

	t.Run("ShortRowTruncatedPositionally", func(t *testing.T) {
		input := "Name,CCNumber,City\nalice,only-two\nbob,x,Shelbyville,extra"

		result, err := engine.Redact(input)
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}

		lines := strings.Split(result.Redacted, "\n")
		if lines[1] != "alice,[REDACTED]" {
			t.Errorf("Short row = %q, want truncation to two fields", lines[1])
		}
		// Fields beyond the header width are silently omitted.
		if lines[2] != "bob,[REDACTED],Shelbyville" {
			t.Errorf("Long row = %q, want truncation to header width", lines[2])
		}
	})
}

func TestRedactPatternRules(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("CardNumberMaskedBeforePhoneRule", func(t *testing.T) {
		// A 16-digit card sequence would also match the generic phone
		// pattern; rule order must give the card mask precedence.
		input := "Notes\nCard 4111111111111111 on file"

		result, err := engine.Redact(input)
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}

		if !strings.Contains(result.Redacted, "[REDACTED CREDIT CARD]") {
			t.Errorf("Card number not masked: %q", result.Redacted)
		}
		if strings.Contains(result.Redacted, "[HASHED PHONE") {
			t.Errorf("Card number leaked into phone rule: %q", result.Redacted)
		}
	})

	t.Run("ExpiryDate", func(t *testing.T) {
		for _, token := range []string{"12/25", "01/2027"} {
			result, err := engine.Redact("Notes\nexpires " + token + " soon")
			if err != nil {
				t.Fatalf("Redact failed: %v", err)
			}
			if !strings.Contains(result.Redacted, "[REDACTED EXPIRY]") {
				t.Errorf("Expiry %q not masked: %q", token, result.Redacted)
			}
		}
	})

	t.Run("StreetAddress", func(t *testing.T) {
		result, err := engine.Redact("Notes\nships to 42 Evergreen Terrace Lane today")
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}
		if !strings.Contains(result.Redacted, "[REDACTED ADDRESS]") {
			t.Errorf("Address not masked: %q", result.Redacted)
		}
	})

	t.Run("LiteralMaskDiscardsOriginal", func(t *testing.T) {
		result, err := engine.Redact("Notes\ncard 378282246310005")
		if err != nil {
			t.Fatalf("Redact failed: %v", err)
		}
		if strings.Contains(result.Redacted, "378282246310005") {
			t.Errorf("Original card number survived redaction: %q", result.Redacted)
		}
	})
}

func TestRedactEmptyInput(t *testing.T) {
	engine := newTestEngine(t)

	for _, input := range []string{"", "   ", "\n\n"} {
		_, err := engine.Redact(input)
		if err == nil {
			t.Fatalf("Redact(%q) succeeded, want format error", input)
		}

		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("Redact(%q) error = %T, want *FormatError", input, err)
		}
	}
}

func TestHashPhoneDeterministic(t *testing.T) {
	if hashPhone("555-123-4567") != hashPhone("555-123-4567") {
		t.Error("hashPhone is not deterministic")
	}
	if hashPhone("555-123-4567") == hashPhone("555-123-4568") {
		t.Error("Distinct phones produced the same digest")
	}
}
