package converter

import (
	"strings"

	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// textContent concatenates the node's direct text children
func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// setTextContent replaces all children with a single text node
func setTextContent(n *html.Node, text string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// repairShadowHost reconstructs Declarative Shadow DOM content that the
// preprocessing step protected from the parser. A host whose <template>
// carries a renamed shadow attribute either keeps its light DOM as-is
// (the rendered fallback state) and loses the template, or — when the
// template is all it has — receives the template's non-comment content
// as real children. A stale loaded attribute is cleared so CSS rules
// gating visibility on it don't hide the now-populated content.
func repairShadowHost(host *html.Node) {
	var tmpl *html.Node
	hasLightDOM := false

	for c := host.FirstChild; c != nil; c = c.NextSibling {
		if isShadowTemplate(c) {
			if tmpl == nil {
				tmpl = c
			}
			continue
		}
		switch c.Type {
		case html.ElementNode:
			hasLightDOM = true
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				hasLightDOM = true
			}
		}
	}

	if tmpl == nil {
		return
	}

	if hasLightDOM {
		host.RemoveChild(tmpl)
		return
	}

	for c := tmpl.FirstChild; c != nil; {
		next := c.NextSibling
		tmpl.RemoveChild(c)
		if c.Type != html.CommentNode {
			host.AppendChild(c)
		}
		c = next
	}
	host.RemoveChild(tmpl)
	removeAttr(host, "loaded")
}

func isShadowTemplate(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "template" &&
		(hasAttr(n, "data-shadowrootmode") || hasAttr(n, "data-shadowmode"))
}
