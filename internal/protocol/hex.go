package protocol

import (
	"encoding/hex"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// ToHex renders each byte as two uppercase hex digits, each prefixed with
// prefix (which may be empty).
func ToHex(b []byte, prefix string) []string {
	out := make([]string, len(b))
	for i, v := range b {
		out[i] = prefix + string([]byte{hexDigits[v>>4], hexDigits[v&0x0F]})
	}
	return out
}

// FormatDeviceID renders raw id bytes as a single "0x"-prefixed identifier,
// e.g. []byte{0x0A, 0x0B, 0x0C} -> "0x0A0B0C".
func FormatDeviceID(b []byte) string {
	return "0x" + strings.Join(ToHex(b, ""), "")
}

// HexDump renders bytes space separated with a per-byte "0x" prefix, for
// diagnostics and debug logging.
func HexDump(b []byte) string {
	return strings.Join(ToHex(b, "0x"), " ")
}

// ParseDeviceID parses a textual identifier made of hex digit pairs into raw
// bytes. A leading "0x" (or "0X") is skipped without producing a byte.
// Odd-length input and non-hex characters are rejected with a *ParseError.
func ParseDeviceID(s string) ([]byte, error) {
	digits := s
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}

	if digits == "" {
		return nil, &ParseError{Input: s, Reason: "empty identifier"}
	}

	out, err := hex.DecodeString(digits)
	if err != nil {
		return nil, &ParseError{Input: s, Reason: "invalid hex digits", Err: err}
	}
	return out, nil
}
