// Package css rewrites stylesheet text so that every url(...) reference
// is replaced by an embedded data: URI.
//
// Known limitation: the scanner takes everything up to the first ')' as
// the reference, so unquoted URLs containing ')' or nested functional
// notation are mishandled. Real archives in the wild depend on this
// exact behavior, so it is kept rather than fixed.
package css

import (
	"encoding/base64"
	"log"
	"strings"

	"github.com/felo/mhtml-inliner/internal/mhtml"
	"github.com/felo/mhtml-inliner/internal/resolver"
)

// Rewrite decodes a CSS part and embeds every resolvable url() reference,
// using the part's own location as the resolution base
func Rewrite(part *mhtml.Part, arc *mhtml.Archive) string {
	return rewrite(part.DecodedText(), part.Location, arc, map[*mhtml.Part]bool{part: true})
}

// RewriteText embeds every resolvable url() reference in the given CSS
// text. References that resolve to nothing are left exactly as written.
func RewriteText(cssText, baseLocation string, arc *mhtml.Archive) string {
	return rewrite(cssText, baseLocation, arc, make(map[*mhtml.Part]bool))
}

// rewrite does the scanning; visiting tracks the stylesheets currently
// being embedded so import cycles terminate instead of recursing forever.
func rewrite(cssText, baseLocation string, arc *mhtml.Archive, visiting map[*mhtml.Part]bool) string {
	if !strings.Contains(cssText, "url(") {
		return cssText
	}

	var out strings.Builder
	out.Grow(len(cssText))

	for {
		idx := strings.Index(cssText, "url(")
		if idx < 0 {
			out.WriteString(cssText)
			break
		}
		out.WriteString(cssText[:idx+len("url(")])
		rest := cssText[idx+len("url("):]

		end := strings.IndexByte(rest, ')')
		if end < 0 {
			// Unterminated reference; emit the remainder untouched
			out.WriteString(rest)
			break
		}

		raw := rest[:end]
		out.WriteString(rewriteReference(raw, baseLocation, arc, visiting))
		cssText = rest[end:]
	}

	return out.String()
}

// rewriteReference embeds a single reference, or returns it unchanged
// when it is already inline, cannot be resolved, or closes an import
// cycle
func rewriteReference(raw, baseLocation string, arc *mhtml.Archive, visiting map[*mhtml.Part]bool) string {
	ref := strings.Trim(raw, `"' `)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return raw
	}

	part := resolver.Resolve(ref, baseLocation, arc)
	if part == nil {
		return raw
	}

	if part.IsCSS() {
		if visiting[part] {
			log.Printf("Warning: stylesheet import cycle through %q, leaving reference as-is", ref)
			return raw
		}
		// Imported stylesheets get their own references embedded before
		// they are embedded themselves
		visiting[part] = true
		nested := rewrite(part.DecodedText(), part.Location, arc, visiting)
		delete(visiting, part)
		return "'data:text/css;base64," + base64.StdEncoding.EncodeToString([]byte(nested)) + "'"
	}
	return "'" + part.DataURI() + "'"
}
