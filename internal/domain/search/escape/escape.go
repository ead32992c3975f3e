// Package escape makes user values safe to embed in Solr standard query syntax.
package escape

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// reservedChars is the character class escaped by Reserved.
const reservedChars = `()\+&|!{}[]?:;,^`

var reservedEscaper = newEscaper(reservedChars)

var quotedEscaper = newEscaper(reservedChars + `"`)

func newEscaper(chars string) *strings.Replacer {
	pairs := make([]string, 0, len(chars)*2)
	for _, c := range chars {
		pairs = append(pairs, string(c), `\`+string(c))
	}
	return strings.NewReplacer(pairs...)
}

// Reserved backslash-escapes the reserved characters ()\+&|!{}[]?:;,^
// so a value cannot break query syntax or inject boolean operators.
func Reserved(v string) string {
	return reservedEscaper.Replace(v)
}

// Quoted is Reserved plus double quotes, for values placed inside a quoted phrase.
func Quoted(v string) string {
	return quotedEscaper.Replace(v)
}

const hexDigits = "0123456789abcdef"

// ID encodes an identifier so it survives inside a query that uses parentheses
// and commas as structural separators. Every code point that is not a letter
// or a number is percent-encoded as UTF-8, and each %XX becomes $xx$.
// The output only contains letters, numbers and '$'.
func ID(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		var buf [4]byte
		n := utf8.EncodeRune(buf[:], r)
		for _, c := range buf[:n] {
			b.WriteByte('$')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
			b.WriteByte('$')
		}
	}
	return b.String()
}

// UnescapeID reverses ID. Strings without $xx$ tokens are returned unchanged,
// so unescaping an already plain identifier is a no-op.
func UnescapeID(v string) string {
	if !strings.Contains(v, "$") {
		return v
	}
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); {
		if c, ok := decodeToken(v[i:]); ok {
			out = append(out, c)
			i += 4
			continue
		}
		out = append(out, v[i])
		i++
	}
	return string(out)
}

// decodeToken decodes a leading $xx$ token.
func decodeToken(s string) (byte, bool) {
	if len(s) < 4 || s[0] != '$' || s[3] != '$' {
		return 0, false
	}
	hi, ok := fromHex(s[1])
	if !ok {
		return 0, false
	}
	lo, ok := fromHex(s[2])
	if !ok {
		return 0, false
	}
	return hi<<4 | lo, true
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
