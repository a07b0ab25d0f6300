package css

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
	utf16BEBOM    = []byte{0xFE, 0xFF}
	utf16LEBOM    = []byte{0xFF, 0xFE}
	charsetPrefix = []byte(`@charset "`)
)

// Decode returns stylesheet data converted to UTF-8. UTF-16 byte order mark
// wins, otherwise encoding is taken from leading @charset rule. When source
// was not UTF-8 the rule is rewritten to match converted content. Byte order
// mark is dropped.
func Decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf16BEBOM) || bytes.HasPrefix(data, utf16LEBOM) {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("unable to decode UTF-16 stylesheet: %w", err)
		}
		if label, rest, ok := cutCharset(out); ok && !isUTF8(label) {
			out = append([]byte(`@charset "UTF-8";`), rest...)
		}
		return out, nil
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	label, rest, ok := cutCharset(data)
	if !ok || isUTF8(label) {
		return data, nil
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(rest))
	if err != nil {
		return nil, fmt.Errorf("unsupported stylesheet charset %q: %w", label, err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet from %q: %w", label, err)
	}
	return append([]byte(`@charset "UTF-8";`), body...), nil
}

// cutCharset splits leading @charset rule off returning its label and the
// rest of data. Malformed rule is left to the parser.
func cutCharset(data []byte) (label string, rest []byte, ok bool) {
	if !bytes.HasPrefix(data, charsetPrefix) {
		return "", data, false
	}
	rest = data[len(charsetPrefix):]
	end := bytes.Index(rest, []byte(`";`))
	if end < 0 {
		return "", data, false
	}
	return strings.TrimSpace(string(rest[:end])), rest[end+2:], true
}

func isUTF8(label string) bool {
	return strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8")
}
