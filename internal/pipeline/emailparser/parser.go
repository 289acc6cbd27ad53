// Package emailparser extracts sender, subject, body, attachments and header
// metadata from a raw RFC 5322 message.
package emailparser

import (
	"context"
	"errors"
	"mime"
	"net/mail"
	"net/textproto"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/example/workflow-pipelines/internal/models"
	"github.com/example/workflow-pipelines/internal/pipeline"
	"github.com/example/workflow-pipelines/internal/util"
)

const (
	// MaxBodyChars is the number of characters of body text kept.
	MaxBodyChars = 1000

	DefaultSender  = "unknown@example.com"
	DefaultSubject = "No Subject"
)

var errInvalidUTF8 = errors.New("input is not valid UTF-8 text")

// Parser implements pipeline.Pipeline for the email_parse workflow.
type Parser struct {
	now         func() time.Time
	logger      zerolog.Logger
	wordDecoder *mime.WordDecoder
}

// New constructs a Parser. now supplies the fallback received date; nil
// selects time.Now.
func New(logger zerolog.Logger, now func() time.Time) *Parser {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Parser{
		now:         now,
		logger:      logger,
		wordDecoder: &mime.WordDecoder{CharsetReader: charsetReader},
	}
}

// Type implements pipeline.Pipeline.
func (p *Parser) Type() models.WorkflowType {
	return models.WorkflowEmailParse
}

// Process implements pipeline.Pipeline.
func (p *Parser) Process(ctx context.Context, input []byte) (models.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Parse(string(input))
}

// Parse extracts an EmailData record from raw. Malformed headers and MIME
// structure are tolerated; only input that cannot be read as text fails, with
// an error wrapping pipeline.ErrParse.
func (p *Parser) Parse(raw string) (*models.EmailData, error) {
	if !utf8.ValidString(raw) {
		return nil, pipeline.Wrap(pipeline.ErrParse, errInvalidUTF8)
	}

	header, body := splitMessage(raw)

	data := &models.EmailData{
		Sender:       extractSender(header),
		Subject:      p.extractSubject(header),
		ReceivedDate: p.extractDate(header),
		Attachments:  []string{},
		Metadata:     extractMetadata(header),
	}

	root := newPart(header, []byte(body), "text/plain")
	if !root.isMultipart() && root.mediaType != "message/rfc822" {
		data.Body = util.TruncateRunes(root.text(), MaxBodyChars)
		return data, nil
	}

	bodyFound := false
	children := 0
	err := p.walk(root, 0, func(node *part) {
		if node != root {
			children++
		}
		if !bodyFound && node.mediaType == "text/plain" {
			data.Body = util.TruncateRunes(node.text(), MaxBodyChars)
			bodyFound = true
		}
		if node.disposition() == "attachment" {
			if name := p.filename(node); name != "" {
				data.Attachments = append(data.Attachments, name)
			}
		}
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("multipart body truncated; keeping parts read so far")
	}
	if children == 0 {
		// No part delimiter was found: the container reads as a single part.
		data.Body = util.TruncateRunes(root.text(), MaxBodyChars)
	}

	return data, nil
}

func extractSender(h textproto.MIMEHeader) string {
	vals, ok := h["From"]
	if !ok || len(vals) == 0 {
		return DefaultSender
	}
	sender := vals[0]

	open := strings.IndexByte(sender, '<')
	if open < 0 {
		return sender
	}
	addr := sender[open+1:]
	if end := strings.IndexAny(addr, "<>"); end >= 0 {
		addr = addr[:end]
	}
	return addr
}

func (p *Parser) extractSubject(h textproto.MIMEHeader) string {
	vals, ok := h["Subject"]
	if !ok || len(vals) == 0 {
		return DefaultSubject
	}
	return p.decodeWords(vals[0])
}

// extractDate falls back to the current time when the header is absent or
// unparseable.
func (p *Parser) extractDate(h textproto.MIMEHeader) time.Time {
	raw := h.Get("Date")
	if raw == "" {
		return p.now().UTC()
	}
	ts, err := mail.ParseDate(raw)
	if err == nil {
		return ts
	}
	if ts, ok := parseLooseDate(raw); ok {
		return ts
	}
	p.logger.Debug().Str("date", raw).Err(err).Msg("unparseable date header; using current time")
	return p.now().UTC()
}

// looseDateLayouts cover dates mail.ParseDate rejects: no zone (read as UTC),
// no comma after the weekday, or the month before the day.
var looseDateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04",
	"Mon 2 Jan 2006 15:04:05 -0700",
	"Mon 2 Jan 2006 15:04:05",
	"Jan 2 2006 15:04:05 -0700",
	"Mon Jan 2 2006 15:04:05 -0700",
	"Jan 2 2006 15:04:05",
}

func parseLooseDate(raw string) (time.Time, bool) {
	normalized := strings.Join(strings.Fields(raw), " ")
	for _, layout := range looseDateLayouts {
		if ts, err := time.Parse(layout, normalized); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func extractMetadata(h textproto.MIMEHeader) *models.Map {
	meta := models.NewMap()
	meta.Set(models.MetaMessageID, models.StringValue(h.Get("Message-Id")))
	meta.Set(models.MetaTo, models.StringValue(h.Get("To")))
	meta.Set(models.MetaCc, models.StringValue(h.Get("Cc")))
	return meta
}

func (p *Parser) decodeWords(value string) string {
	decoded, err := p.wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func (p *Parser) filename(node *part) string {
	_, params := headerParams(node.header.Get("Content-Disposition"))
	name := params["filename"]
	if name == "" {
		name = node.params["name"]
	}
	return strings.TrimSpace(p.decodeWords(name))
}
