package xhtml

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

var (
	xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([^"']+)["']`)
	declEncoding    = regexp.MustCompile(`(?i)(<\?xml[^>]*?encoding\s*=\s*["'])([^"']+)(["'])`)
	metaCharset     = regexp.MustCompile(`(?i)(<meta\s[^>]*?charset\s*=\s*["']?)([\w-]+)`)
)

// Decode converts raw document bytes to UTF-8 text. Encoding is taken from
// BOM, XML declaration or HTML meta prescan in that order. Returned name is
// canonical name of detected encoding.
func Decode(data []byte) (string, string, error) {
	enc, name, certain := charset.DetermineEncoding(data, "text/html")
	if !certain || name == "windows-1252" {
		if m := xmlDeclEncoding.FindSubmatch(data); m != nil {
			if e, n := charset.Lookup(string(m[1])); e != nil {
				enc, name = e, n
			}
		}
	}
	if enc == nil {
		return "", "", fmt.Errorf("unable to detect document encoding")
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, fmt.Errorf("unable to decode document as %s: %w", name, err)
	}
	out = bytes.TrimPrefix(out, []byte("\ufeff"))
	return string(out), name, nil
}

// Normalize converts line endings to LF and text to Unicode NFC.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// FixEncodingDeclarations makes XML declaration and meta charset agree with
// UTF-8 text.
func FixEncodingDeclarations(text string) string {
	text = declEncoding.ReplaceAllString(text, "${1}utf-8${3}")
	return metaCharset.ReplaceAllString(text, "${1}utf-8")
}

// CharToEntity removes characters which are not allowed in XML and replaces
// invisible ones with numeric character references so they survive editing.
func CharToEntity(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			sb.WriteRune(r)
		case r < 0x20:
			// not representable in XML 1.0
		case r >= 0x7f && r <= 0x9f, r == 0xa0, r == 0xad, r >= 0x200b && r <= 0x200d, r == 0x2060, r == 0xfeff:
			fmt.Fprintf(&sb, "&#%d;", r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
