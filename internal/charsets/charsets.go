// Package charsets is the injected character-set decoding capability.
// Everything outside UTF-8 goes through here.
package charsets

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// Register additional charsets that are commonly emitted by capturing
	// browsers
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// Decode converts data from the named charset to UTF-8. When the name is
// empty or unknown, the charset is detected from the bytes instead; if
// that also fails the data is returned unchanged along with the error so
// callers can degrade gracefully.
func Decode(data []byte, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return detectAndDecode(data)
	}
	if name == "utf-8" || name == "us-ascii" {
		return string(data), nil
	}

	r, err := charset.Reader(name, bytes.NewReader(data))
	if err != nil {
		// Declared charset we cannot handle; fall back to sniffing
		return detectAndDecode(data)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(data), fmt.Errorf("failed to decode %s text: %w", name, err)
	}
	return string(decoded), nil
}

// detectAndDecode sniffs the charset from the raw bytes and decodes with
// the best guess
func detectAndDecode(data []byte) (string, error) {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return string(data), fmt.Errorf("failed to detect charset: %w", err)
	}
	name := strings.ToLower(result.Charset)
	if name == "utf-8" || name == "us-ascii" || name == "iso-8859-1" && isASCII(data) {
		return string(data), nil
	}
	r, err := charset.Reader(name, bytes.NewReader(data))
	if err != nil {
		return string(data), fmt.Errorf("detected charset %q is not supported: %w", name, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(data), fmt.Errorf("failed to decode detected %s text: %w", name, err)
	}
	return string(decoded), nil
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
