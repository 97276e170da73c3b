package mhtml

import "strings"

// TransferEncoding identifies how a part's body bytes were encoded on the wire
type TransferEncoding int

const (
	Encoding7Bit TransferEncoding = iota
	EncodingQuotedPrintable
	EncodingBase64
	EncodingUnknown
)

// String returns the wire name of the encoding
func (e TransferEncoding) String() string {
	switch e {
	case Encoding7Bit:
		return "7bit"
	case EncodingQuotedPrintable:
		return "quoted-printable"
	case EncodingBase64:
		return "base64"
	default:
		return "unknown"
	}
}

// Part represents one MIME body from the archive.
//
// When TransferEncoding is base64 the Data field still holds the raw
// base64 text (whitespace removed) — it is spliced verbatim into data:
// URIs later, so decoding it here would only mean re-encoding it again.
// Every other encoding is decoded to text, with charset conversion
// applied if a non-UTF-8 charset was declared.
type Part struct {
	ID               string
	Location         string
	MimeType         string
	Charset          string
	TransferEncoding TransferEncoding
	Data             string
}

// IsHTML reports whether the part's declared MIME type is HTML-compatible
func (p *Part) IsHTML() bool {
	return strings.Contains(strings.ToLower(p.MimeType), "html")
}

// IsCSS reports whether the part's declared MIME type is a stylesheet type
func (p *Part) IsCSS() bool {
	return strings.Contains(strings.ToLower(p.MimeType), "css")
}

// IsImage reports whether the part's declared MIME type is an image type
func (p *Part) IsImage() bool {
	return strings.Contains(strings.ToLower(p.MimeType), "image")
}

// Archive is the structured form of a parsed MHTML file.
//
// Media is keyed by Content-Location, Frames by Content-ID. Locations
// preserves the order parts appeared in the archive so that scans over
// Media (suffix matching in particular) stay deterministic — Go map
// iteration order is randomized, but lookups in the source format follow
// archive order.
type Archive struct {
	Media        map[string]*Part
	Frames       map[string]*Part
	Locations    []string
	RootLocation string
}

// Root returns the part the archive declares as its index document
func (a *Archive) Root() *Part {
	return a.Media[a.RootLocation]
}

// addPart stores a part under its location (first occurrence wins) and
// its id. A part with neither never reaches this point.
func (a *Archive) addPart(p *Part) {
	if p.Location != "" {
		if _, exists := a.Media[p.Location]; !exists {
			a.Media[p.Location] = p
			a.Locations = append(a.Locations, p.Location)
		}
	}
	if p.ID != "" {
		a.Frames[p.ID] = p
	}
}
