package pledge

import (
	"strings"
)

// NormalizeContact canonicalizes a contact value for storage and comparison:
// emails are lowercased, phone numbers keep only a leading + and digits.
func NormalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if IsEmail(contact) {
		return strings.ToLower(contact)
	}
	var b strings.Builder
	for i := 0; i < len(contact); i++ {
		c := contact[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		} else if c == '+' && b.Len() == 0 {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func IsEmail(contact string) bool {
	at := strings.Index(contact, "@")
	if at <= 0 || at == len(contact)-1 {
		return false
	}
	domain := contact[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(contact, " \t")
}

func IsMobile(contact string) bool {
	normalized := NormalizeContact(contact)
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// IsContact reports whether the value is usable as an OTP delivery target.
func IsContact(contact string) bool {
	return IsEmail(contact) || IsMobile(contact)
}
