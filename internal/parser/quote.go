package parser

import "strings"

const upperhex = "0123456789ABCDEF"

// Quote percent-encodes s byte by byte, the way Python's urllib.parse.quote
// does: ASCII letters, digits, "_.-~" and any byte listed in safe are kept,
// everything else becomes %XX with uppercase hex. Spaces become %20, not "+".
//
// net/url has no equivalent: QueryEscape turns spaces into "+" and PathEscape
// keeps ":" and "@".
func Quote(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) || (c < 0x80 && strings.IndexByte(safe, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-' || c == '~':
		return true
	}
	return false
}
