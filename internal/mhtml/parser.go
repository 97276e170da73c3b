// Package mhtml parses browser-produced MHTML archives (multipart/related
// snapshots) into a structured Archive of parts keyed by Content-Location
// and Content-ID.
//
// Real-world archives are sloppy: different capturers omit headers, mix
// line endings, and default encodings differently. Header-level problems
// therefore degrade to a warning plus a best-effort default, while
// structural impossibilities (no boundary, no document Content-Type)
// abort parsing — an input like that is not an MHTML archive at all.
package mhtml

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/net/html"

	"github.com/felo/mhtml-inliner/internal/charsets"
)

var (
	// ErrMissingContentType means the document headers carry no Content-Type
	ErrMissingContentType = errors.New("mhtml: document Content-Type header missing")
	// ErrMissingBoundary means the document Content-Type declares no boundary token
	ErrMissingBoundary = errors.New("mhtml: document Content-Type declares no boundary")
	// ErrNoParts means no referenceable part was found after the headers
	ErrNoParts = errors.New("mhtml: archive contains no referenceable parts")
)

// parser state machine states
type parserState int

const (
	stateHeaders parserState = iota
	statePartHeaders
	statePartData
	stateEnd
)

// parser holds the state threaded through one Parse call. Nothing here
// outlives the call.
type parser struct {
	cur      *Cursor
	boundary string
	arc      *Archive
	rootSeen bool

	// htmlOnly short-circuits after the root part is assembled
	htmlOnly bool
	parseDOM func(string) (*html.Node, error)
	rootDoc  *html.Node
}

// Parse tokenizes raw MHTML text into an Archive
func Parse(text string) (*Archive, error) {
	p := &parser{cur: NewCursor(text)}
	if err := p.run(); err != nil {
		return nil, err
	}
	if p.arc.RootLocation == "" {
		return nil, ErrNoParts
	}
	return p.arc, nil
}

// ParseHTML decodes only the root part and hands it straight to the
// injected DOM parser, skipping every subresource. Use it when the
// caller wants the captured document and nothing else.
func ParseHTML(text string, parseDOM func(string) (*html.Node, error)) (*html.Node, error) {
	p := &parser{cur: NewCursor(text), htmlOnly: true, parseDOM: parseDOM}
	if err := p.run(); err != nil {
		return nil, err
	}
	if p.rootDoc == nil {
		return nil, ErrNoParts
	}
	return p.rootDoc, nil
}

// run drives the state machine until END or a fatal condition
func (p *parser) run() error {
	p.arc = &Archive{
		Media:  make(map[string]*Part),
		Frames: make(map[string]*Part),
	}

	state := stateHeaders
	var current *Part

	for state != stateEnd {
		switch state {
		case stateHeaders:
			headers := readHeaders(p.cur)
			contentType, ok := headers["content-type"]
			if !ok {
				return ErrMissingContentType
			}
			boundary := headerParam(contentType, "boundary")
			if boundary == "" {
				return ErrMissingBoundary
			}
			p.boundary = boundary
			// Skip any preamble before the first boundary line
			if final := p.skipToBoundary(); final || p.cur.AtEnd() {
				state = stateEnd
			} else {
				state = statePartHeaders
			}

		case statePartHeaders:
			part, skip := p.readPartHeaders()
			if skip {
				// Unreferenceable part: scan forward to the next boundary
				if final := p.skipToBoundary(); final || p.cur.AtEnd() {
					state = stateEnd
				}
				continue
			}
			current = part
			state = statePartData

		case statePartData:
			final, err := p.readPartData(current)
			if err != nil {
				return err
			}
			if p.htmlOnly && p.rootDoc != nil {
				return nil
			}
			current = nil
			if final || p.cur.AtEnd() {
				state = stateEnd
			} else {
				state = statePartHeaders
			}
		}
	}

	return nil
}

// readPartHeaders assembles the next Part from its header block. skip is
// true when the part has neither a Content-ID nor a Content-Location: it
// can never be looked up by the converter, so its body is discarded.
func (p *parser) readPartHeaders() (part *Part, skip bool) {
	// Some capturers pad the boundary line with blank lines before the
	// part headers start
	p.cur.SkipBlankLines()
	headers := readHeaders(p.cur)
	part = &Part{}

	if contentType, ok := headers["content-type"]; ok {
		part.MimeType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
		part.Charset = headerParam(contentType, "charset")
	} else {
		log.Printf("Warning: part missing Content-Type, assuming application/octet-stream")
		part.MimeType = "application/octet-stream"
	}

	if te, ok := headers["content-transfer-encoding"]; ok {
		switch strings.ToLower(strings.TrimSpace(te)) {
		case "7bit":
			part.TransferEncoding = Encoding7Bit
		case "quoted-printable":
			part.TransferEncoding = EncodingQuotedPrintable
		case "base64":
			part.TransferEncoding = EncodingBase64
		default:
			log.Printf("Warning: unsupported Content-Transfer-Encoding %q, treating as plain text", te)
			part.TransferEncoding = EncodingUnknown
		}
	} else {
		part.TransferEncoding = EncodingQuotedPrintable
		log.Printf("Warning: part missing Content-Transfer-Encoding, assuming %s", part.TransferEncoding)
	}

	part.ID = strings.Trim(strings.TrimSpace(headers["content-id"]), "<>")
	part.Location = strings.TrimSpace(headers["content-location"])

	if part.ID == "" && part.Location == "" {
		// The first part is still the index document even without either
		// header; synthesize a location so it stays addressable.
		if !p.rootSeen {
			part.Location = "index.html"
		} else {
			log.Printf("Warning: part has neither Content-ID nor Content-Location, skipping")
			return nil, true
		}
	}
	return part, false
}

// readPartData accumulates body lines until the boundary, decoding
// quoted-printable line by line as it reads. Base64 bodies are
// concatenated verbatim and stay encoded — they get spliced into data:
// URIs as-is. final is true when the closing boundary was seen.
func (p *parser) readPartData(part *Part) (final bool, err error) {
	var b strings.Builder
	for {
		line, ok := p.cur.NextLine()
		if !ok {
			final = true
			break
		}
		if strings.Contains(line, p.boundary) {
			final = strings.HasSuffix(strings.TrimSpace(line), "--")
			break
		}
		switch part.TransferEncoding {
		case EncodingBase64:
			b.WriteString(strings.TrimSpace(line))
		case EncodingQuotedPrintable:
			decoded, soft := decodeQPLine(line)
			b.WriteString(decoded)
			if !soft {
				b.WriteByte('\n')
			}
		default:
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	part.Data = b.String()

	if part.TransferEncoding != EncodingBase64 && part.Charset != "" {
		if !strings.EqualFold(part.Charset, "utf-8") && !strings.EqualFold(part.Charset, "us-ascii") {
			decoded, err := charsets.Decode([]byte(part.Data), part.Charset)
			if err != nil {
				log.Printf("Warning: charset %q conversion failed: %v", part.Charset, err)
			} else {
				part.Data = decoded
			}
		}
	}

	isRoot := !p.rootSeen
	if isRoot {
		p.rootSeen = true
		if part.Location == "" {
			part.Location = part.ID
		}
		p.arc.RootLocation = part.Location
		if p.htmlOnly {
			doc, err := p.parseDOM(part.Data)
			if err != nil {
				return final, fmt.Errorf("failed to parse root document: %w", err)
			}
			p.rootDoc = doc
			return final, nil
		}
	}

	p.arc.addPart(part)
	return final, nil
}

// skipToBoundary consumes lines up to and including the next boundary
// line. final is true when that line is the closing boundary.
func (p *parser) skipToBoundary() (final bool) {
	for {
		line, ok := p.cur.NextLine()
		if !ok {
			return true
		}
		if strings.Contains(line, p.boundary) {
			return strings.HasSuffix(strings.TrimSpace(line), "--")
		}
	}
}

// readHeaders accumulates "Key: value" lines until a blank line,
// folding indented continuation lines onto the previous key. The
// previous key lives in an explicit local, never package state.
func readHeaders(cur *Cursor) map[string]string {
	headers := make(map[string]string)
	var lastKey string
	for {
		line, ok := cur.NextLine()
		if !ok || strings.TrimSpace(line) == "" {
			break
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && lastKey != "" {
			headers[lastKey] += " " + strings.TrimSpace(line)
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			log.Printf("Warning: malformed header line %q, ignoring", line)
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		headers[key] = strings.TrimSpace(line[idx+1:])
		lastKey = key
	}
	return headers
}

// headerParam extracts a single ;-delimited parameter (boundary=,
// charset=) from a header value, stripping surrounding quotes.
func headerParam(value, name string) string {
	for _, seg := range strings.Split(value, ";") {
		seg = strings.TrimSpace(seg)
		kv := strings.SplitN(seg, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(kv[0]), name) {
			return strings.Trim(strings.TrimSpace(kv[1]), `"'`)
		}
	}
	return ""
}

// decodeQPLine decodes one quoted-printable line. soft is true when the
// line ended with a soft break (trailing =), meaning no newline follows.
func decodeQPLine(line string) (decoded string, soft bool) {
	if strings.HasSuffix(line, "=") {
		line = line[:len(line)-1]
		soft = true
	}
	if !strings.ContainsRune(line, '=') {
		return line, soft
	}
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		c := line[i]
		if c == '=' && i+2 < len(line) {
			hi, okHi := unhex(line[i+1])
			lo, okLo := unhex(line[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 3
				continue
			}
		}
		// Invalid escape sequences pass through untouched
		b.WriteByte(c)
		i++
	}
	return b.String(), soft
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
