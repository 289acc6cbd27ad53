package emailparser

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
)

// maxPartDepth bounds multipart nesting.
const maxPartDepth = 32

// splitMessage separates the header block from the body. Headers end at the
// first blank line or at the first line that is neither a header field nor a
// continuation; that line then starts the body. A leading mbox "From " line is
// skipped.
func splitMessage(raw string) (textproto.MIMEHeader, string) {
	header := make(textproto.MIMEHeader)
	var lastKey string

	pos := 0
	for first := true; pos < len(raw); first = false {
		next := len(raw)
		line := raw[pos:]
		if idx := strings.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
			next = pos + idx + 1
		}
		line = strings.TrimSuffix(line, "\r")

		switch {
		case first && strings.HasPrefix(line, "From "):
		case line == "":
			return header, raw[next:]
		case line[0] == ' ' || line[0] == '\t':
			if lastKey != "" {
				vals := header[lastKey]
				vals[len(vals)-1] = strings.TrimSpace(vals[len(vals)-1] + line)
			}
		default:
			colon := strings.IndexByte(line, ':')
			if colon <= 0 || !validFieldName(line[:colon]) {
				return header, raw[pos:]
			}
			lastKey = textproto.CanonicalMIMEHeaderKey(line[:colon])
			header[lastKey] = append(header[lastKey], strings.TrimSpace(line[colon+1:]))
		}
		pos = next
	}
	return header, ""
}

// validFieldName reports whether name uses only printable ASCII other than
// space and colon.
func validFieldName(name string) bool {
	for i := 0; i < len(name); i++ {
		if c := name[i]; c < '!' || c > '~' || c == ':' {
			return false
		}
	}
	return true
}

// part is one node of the MIME tree.
type part struct {
	header    textproto.MIMEHeader
	mediaType string
	params    map[string]string
	body      []byte
}

func newPart(header textproto.MIMEHeader, body []byte, defaultType string) *part {
	mediaType, params := headerParams(header.Get("Content-Type"))
	if strings.Count(mediaType, "/") != 1 {
		mediaType = defaultType
	}
	if params == nil {
		params = map[string]string{}
	}
	return &part{
		header:    header,
		mediaType: mediaType,
		params:    params,
		body:      body,
	}
}

// isMultipart reports whether the part is a container this parser can split.
// A multipart type without a boundary is read as a single part.
func (p *part) isMultipart() bool {
	return strings.HasPrefix(p.mediaType, "multipart/") && p.params["boundary"] != ""
}

func (p *part) disposition() string {
	value := p.header.Get("Content-Disposition")
	if value == "" {
		return ""
	}
	disp, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(disp))
}

// payload returns the body with its Content-Transfer-Encoding removed. Bodies
// that fail to decode are returned as they are.
func (p *part) payload() []byte {
	switch strings.ToLower(strings.TrimSpace(p.header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		if decoded, err := decodeBase64(p.body); err == nil {
			return decoded
		}
	case "quoted-printable":
		if decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(p.body))); err == nil {
			return decoded
		}
	}
	return p.body
}

// text decodes the payload into UTF-8, dropping bytes that do not decode.
func (p *part) text() string {
	return toUTF8(p.payload(), p.params["charset"])
}

// walk visits root and every descendant depth-first, in document order,
// descending into multipart containers and embedded messages. A multipart
// body that breaks off midway stops the walk; parts already visited stand and
// the error is returned.
func (p *Parser) walk(root *part, depth int, visit func(*part)) error {
	visit(root)

	isMessage := root.mediaType == "message/rfc822"
	if !isMessage && !root.isMultipart() {
		return nil
	}
	if depth >= maxPartDepth {
		return fmt.Errorf("multipart nesting deeper than %d", maxPartDepth)
	}
	if isMessage {
		header, body := splitMessage(string(root.payload()))
		return p.walk(newPart(header, []byte(body), "text/plain"), depth+1, visit)
	}

	childDefault := "text/plain"
	if root.mediaType == "multipart/digest" {
		childDefault = "message/rfc822"
	}

	reader := multipart.NewReader(bytes.NewReader(root.body), root.params["boundary"])
	for read := 0; ; read++ {
		raw, err := reader.NextRawPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if read == 0 {
				// No opening boundary: nothing to split.
				return nil
			}
			return fmt.Errorf("read part %d: %w", read+1, err)
		}

		// A part cut off before its closing delimiter is still visited.
		body, readErr := io.ReadAll(raw)
		child := newPart(raw.Header, body, childDefault)
		if err := p.walk(child, depth+1, visit); err != nil {
			return err
		}
		if readErr != nil {
			return fmt.Errorf("read part %d body: %w", read+1, readErr)
		}
	}
}

// headerParams splits a structured header such as Content-Type into its
// lowercased value and parameters. Parameters that mime.ParseMediaType
// rejects are recovered with a looser split.
func headerParams(value string) (string, map[string]string) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err == nil {
		return mediaType, params
	}
	if errors.Is(err, mime.ErrInvalidMediaParameter) && mediaType != "" {
		return mediaType, looseParams(value)
	}

	head, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(head)), looseParams(value)
}

func looseParams(value string) map[string]string {
	params := map[string]string{}
	segments := strings.Split(value, ";")
	for _, seg := range segments[1:] {
		key, val, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.Trim(strings.TrimSpace(val), `"`)
		if key != "" {
			if _, seen := params[key]; !seen {
				params[key] = val
			}
		}
	}
	return params
}

func decodeBase64(src []byte) ([]byte, error) {
	cleaned := bytes.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, src)

	decoded, err := base64.StdEncoding.DecodeString(string(cleaned))
	if err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(string(cleaned), "="))
}
