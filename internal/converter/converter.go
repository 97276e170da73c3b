// Package converter rewrites a parsed MHTML archive's root document so
// that every external reference is inlined, producing a single
// self-contained HTML document.
package converter

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/felo/mhtml-inliner/internal/css"
	"github.com/felo/mhtml-inliner/internal/mhtml"
	"github.com/felo/mhtml-inliner/internal/resolver"
)

var (
	// ErrInvalidArchive means the archive is nil or missing its part tables
	ErrInvalidArchive = errors.New("converter: archive is nil or incomplete")
	// ErrRootNotFound means the archive's declared root has no part
	ErrRootNotFound = errors.New("converter: root part not present in archive")
	// ErrRootNotHTML means the root part's MIME type is not HTML-compatible
	ErrRootNotHTML = errors.New("converter: root part is not an HTML document")
)

// ParseDOMFunc is the injected DOM-parsing capability. Any HTML parser
// producing an x/net/html tree satisfies it.
type ParseDOMFunc func(htmlText string) (*html.Node, error)

// DefaultParseDOM parses with golang.org/x/net/html
func DefaultParseDOM(htmlText string) (*html.Node, error) {
	return html.Parse(strings.NewReader(htmlText))
}

// Options controls a single conversion
type Options struct {
	// ConvertIframes enables recursive inlining of iframe parts
	// referenced through cid: URLs. Off by default; disabled iframes
	// keep their cid: reference untouched.
	ConvertIframes bool

	// ParseDOM overrides the DOM parser. Nil selects DefaultParseDOM.
	ParseDOM ParseDOMFunc
}

// ConvertText parses raw MHTML text and converts it in one step
func ConvertText(mhtmlText string, opts Options) (*html.Node, error) {
	arc, err := mhtml.Parse(mhtmlText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive: %w", err)
	}
	return Convert(arc, opts)
}

// Convert inlines every resolvable reference in the archive's root
// document and returns the rewritten tree. The archive is read, never
// mutated, so independent conversions share nothing.
func Convert(arc *mhtml.Archive, opts Options) (*html.Node, error) {
	if arc == nil || arc.Media == nil || arc.Frames == nil || arc.RootLocation == "" {
		return nil, ErrInvalidArchive
	}
	root := arc.Root()
	if root == nil {
		return nil, ErrRootNotFound
	}
	if opts.ParseDOM == nil {
		opts.ParseDOM = DefaultParseDOM
	}
	return convertPart(root, arc.RootLocation, arc, opts, make(map[string]bool))
}

// Render serializes a converted tree back to HTML text
func Render(doc *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}
	return buf.String(), nil
}

// convertPart converts one HTML part against the given resolution base.
// Iframe recursion re-enters here with the same archive and only the
// base varying; inFlight holds the frame ids currently being converted
// so frame cycles terminate instead of recursing forever.
func convertPart(part *mhtml.Part, base string, arc *mhtml.Archive, opts Options, inFlight map[string]bool) (*html.Node, error) {
	if !part.IsHTML() {
		return nil, fmt.Errorf("%w (got %q)", ErrRootNotHTML, part.MimeType)
	}

	text := renameShadowAttributes(part.DecodedText())
	doc, err := opts.ParseDOM(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	w := &walker{arc: arc, opts: opts, base: base, inFlight: inFlight}
	w.walk(doc)
	return doc, nil
}

// renameShadowAttributes rewrites shadowrootmode=/shadowmode= to data-
// prefixed forms before parsing. DOM parsers that partially understand
// declarative shadow roots silently discard the sibling markup that
// follows them; the renamed attributes survive parsing and drive the
// repair pass instead.
func renameShadowAttributes(text string) string {
	text = strings.ReplaceAll(text, "shadowrootmode=", "data-shadowrootmode=")
	text = strings.ReplaceAll(text, "shadowmode=", "data-shadowmode=")
	return text
}

// walker carries per-conversion state through the tree walk
type walker struct {
	arc      *mhtml.Archive
	opts     Options
	base     string
	inFlight map[string]bool
}

// walk visits the tree breadth-first using an explicit worklist. A
// node's current children are enqueued before the node itself is
// mutated or replaced, so rewrites never skip or double-visit nodes
// whose tree position changes mid-walk.
func (w *walker) walk(doc *html.Node) {
	queue := []*html.Node{doc}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		// Shadow-root repair reshapes this node's child list, so it runs
		// before the children are snapshotted.
		if n.Type == html.ElementNode {
			repairShadowHost(n)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			queue = append(queue, c)
		}

		if n.Type == html.ElementNode {
			w.visit(n)
		}
	}
}

// visit dispatches on the element's tag and rewrites its references
func (w *walker) visit(n *html.Node) {
	switch n.Data {
	case "head":
		// Residual non-inlined relative links should open in the parent
		// frame instead of erroring inside the snapshot.
		baseEl := &html.Node{
			Type:     html.ElementNode,
			Data:     "base",
			DataAtom: atom.Base,
			Attr:     []html.Attribute{{Key: "target", Val: "_parent"}},
		}
		n.InsertBefore(baseEl, n.FirstChild)

	case "link":
		w.inlineStylesheetLink(n)

	case "style":
		text := textContent(n)
		setTextContent(n, css.RewriteText(text, w.base, w.arc))

	case "img":
		if src := getAttr(n, "src"); src != "" {
			if part := resolver.Resolve(src, w.base, w.arc); part != nil && part.IsImage() {
				setAttr(n, "src", part.DataURI())
			}
		}

	case "iframe":
		w.inlineIframe(n)
	}

	// Every element gets its inline style rewritten and its integrity
	// attribute dropped: hash-verified resources no longer match once
	// their references are inlined.
	if style := getAttr(n, "style"); strings.Contains(style, "url(") {
		setAttr(n, "style", css.RewriteText(style, w.base, w.arc))
	}
	removeAttr(n, "integrity")
}

// inlineStylesheetLink replaces <link rel="stylesheet"> with a <style>
// element holding the rewritten sheet. Alternate and preload stylesheet
// links are deliberately left untouched.
func (w *walker) inlineStylesheetLink(n *html.Node) {
	if !strings.EqualFold(strings.TrimSpace(getAttr(n, "rel")), "stylesheet") {
		return
	}
	href := getAttr(n, "href")
	if href == "" {
		return
	}
	part := resolver.Resolve(href, w.base, w.arc)
	if part == nil || !part.IsCSS() {
		return
	}

	styleEl := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
	}
	styleEl.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: css.Rewrite(part, w.arc),
	})

	parent := n.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(styleEl, n)
	parent.RemoveChild(n)
}

// inlineIframe recursively converts a cid:-referenced frame part and
// embeds the serialized result as a data:text/html URI. The recursion
// borrows the parent's part tables; only the resolution base changes.
func (w *walker) inlineIframe(n *html.Node) {
	if !w.opts.ConvertIframes {
		return
	}
	src := getAttr(n, "src")
	if !strings.HasPrefix(src, "cid:") {
		return
	}
	id := strings.TrimPrefix(src, "cid:")
	framePart, ok := w.arc.Frames[id]
	if !ok {
		log.Printf("Warning: iframe references unknown frame %q", id)
		return
	}
	if !framePart.IsHTML() {
		log.Printf("Warning: frame %q is not an HTML document, leaving iframe untouched", id)
		return
	}
	if w.inFlight[id] {
		log.Printf("Warning: frame %q embeds itself, leaving iframe untouched", id)
		return
	}

	w.inFlight[id] = true
	nested, err := convertPart(framePart, id, w.arc, w.opts, w.inFlight)
	delete(w.inFlight, id)
	if err != nil {
		log.Printf("Warning: failed to convert frame %q: %v", id, err)
		return
	}
	serialized, err := Render(nested)
	if err != nil {
		log.Printf("Warning: failed to serialize frame %q: %v", id, err)
		return
	}
	setAttr(n, "src", "data:text/html;charset=utf-8,"+url.PathEscape(serialized))
}
