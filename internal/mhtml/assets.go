package mhtml

import (
	"encoding/base64"
	"log"

	"github.com/gabriel-vasile/mimetype"
)

// DecodedBytes returns the part's body as raw bytes, decoding base64
// parts on the fly. Undecodable base64 degrades to the raw text with a
// warning rather than failing the conversion.
func (p *Part) DecodedBytes() []byte {
	if p.TransferEncoding != EncodingBase64 {
		return []byte(p.Data)
	}
	decoded, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		log.Printf("Warning: part %s has invalid base64 data: %v", p.Location, err)
		return []byte(p.Data)
	}
	return decoded
}

// DataURI builds a data:<mime>;base64,<payload> URI embedding the part's
// bytes. Base64 parts splice their stored payload verbatim; everything
// else is encoded here. Parts without a usable declared type get their
// type sniffed from the bytes.
func (p *Part) DataURI() string {
	mime := p.MimeType
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(p.DecodedBytes()).String()
	}

	var payload string
	if p.TransferEncoding == EncodingBase64 {
		payload = p.Data
	} else {
		payload = base64.StdEncoding.EncodeToString([]byte(p.Data))
	}
	return "data:" + mime + ";base64," + payload
}

// DecodedText returns the part's body as text, decoding base64 parts
func (p *Part) DecodedText() string {
	if p.TransferEncoding != EncodingBase64 {
		return p.Data
	}
	return string(p.DecodedBytes())
}
