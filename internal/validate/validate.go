package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Bounds applied to incoming message fields.
const (
	// MaxAddressLen is the RFC 5321 limit on a complete address.
	MaxAddressLen = 254
	// MaxLocalPartLen is the RFC 5321 limit on the part before the "@".
	MaxLocalPartLen = 64
	// MaxSubjectLen is the longest subject passed through unmodified.
	MaxSubjectLen = 500
	// MaxBodyLen is the longest body passed through unmodified.
	MaxBodyLen = 50000

	subjectKeepLen = 497
	bodyKeepLen    = 49950
)

// BodyTruncationNotice is appended to bodies that exceed MaxBodyLen.
const BodyTruncationNotice = "\n\n[Message truncated]"

var (
	// Conservative local@domain shape: no whitespace, no stray "@".
	addressRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Dotted-quad IPv4 literal used as a domain.
	ipv4DomainRe = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ValidAddress reports whether addr is an acceptable recipient address.
// It rejects overlong addresses, bare hostnames, "localhost" and raw
// IPv4 domains rather than attempting full RFC 5322 parsing.
func ValidAddress(addr string) bool {
	if len(addr) >= MaxAddressLen {
		return false
	}
	at := strings.Index(addr, "@")
	if at <= 0 || at != strings.LastIndex(addr, "@") {
		return false
	}
	local, domain := addr[:at], addr[at+1:]
	if len(local) >= MaxLocalPartLen {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	if strings.EqualFold(domain, "localhost") {
		return false
	}
	if ipv4DomainRe.MatchString(domain) {
		return false
	}
	return addressRe.MatchString(addr)
}

// ParseRecipientList splits a comma-separated recipient string, trims
// whitespace, drops empty entries and validates every remaining address.
// The first invalid address fails the whole list.
func ParseRecipientList(csv string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		if !ValidAddress(addr) {
			return nil, fmt.Errorf("invalid recipient address: %s", addr)
		}
		out = append(out, addr)
	}
	return out, nil
}

// SanitizeSubject strips null bytes, trims surrounding whitespace and
// truncates subjects longer than MaxSubjectLen, marking the cut with an
// ellipsis.
func SanitizeSubject(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\x00", ""))
	if utf8.RuneCountInString(s) > MaxSubjectLen {
		s = truncateRunes(s, subjectKeepLen) + "..."
	}
	return s
}

// SanitizeBody strips null bytes and truncates bodies longer than
// MaxBodyLen, appending BodyTruncationNotice after the kept content.
func SanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	if utf8.RuneCountInString(s) > MaxBodyLen {
		s = truncateRunes(s, bodyKeepLen) + BodyTruncationNotice
	}
	return s
}

// truncateRunes cuts s after n runes. Limits are measured in characters,
// not bytes, so a multibyte rune is never split.
func truncateRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
