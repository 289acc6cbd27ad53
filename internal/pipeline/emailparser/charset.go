package emailparser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// charsetReader lets mime.WordDecoder decode encoded words in any charset
// registered with IANA.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// toUTF8 converts b from charset to UTF-8. Unknown charsets are read as UTF-8.
// Invalid sequences are dropped.
func toUTF8(b []byte, charset string) string {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
	default:
		if enc, err := ianaindex.MIME.Encoding(charset); err == nil && enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(b); err == nil {
				b = decoded
			}
		}
	}
	return strings.ToValidUTF8(string(b), "")
}
