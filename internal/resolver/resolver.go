// Package resolver locates archive parts for reference strings found in
// HTML attributes and CSS. Captured pages reference their subresources
// inconsistently (absolute, relative, root-relative, or just renamed), so
// lookup runs through several fallback strategies.
package resolver

import (
	"strings"

	"github.com/felo/mhtml-inliner/internal/mhtml"
)

// Resolve finds the part a reference points at, trying in order: exact
// key match, path-relative resolution against baseLocation, root-relative
// resolution, and finally a filename-suffix scan. Returns nil when no
// strategy matches — callers leave the original reference untouched
// rather than failing the conversion.
func Resolve(reference, baseLocation string, arc *mhtml.Archive) *mhtml.Part {
	reference = strings.Trim(reference, `"' `)
	if reference == "" {
		return nil
	}

	// 1. Exact key match
	if part, ok := arc.Media[reference]; ok {
		return part
	}

	// 2. Path-relative against the base location
	if joined := JoinPath(baseLocation, reference); joined != reference {
		if part, ok := arc.Media[joined]; ok {
			return part
		}
	}

	// 3. Root-relative: origin of the base plus the reference
	if strings.HasPrefix(reference, "/") {
		if origin := originOf(baseLocation); origin != "" {
			if part, ok := arc.Media[origin+reference]; ok {
				return part
			}
		}
	}

	// 4. Filename-suffix scan, in archive order; short segments match
	// too much to be trustworthy
	segment := lastSegment(reference)
	if len(segment) >= 4 {
		for _, loc := range arc.Locations {
			if strings.HasSuffix(loc, segment) {
				return arc.Media[loc]
			}
		}
	}

	return nil
}

// JoinPath resolves reference against base with stack-based . and ..
// semantics. Absolute http(s) references are returned unchanged rather
// than joined.
func JoinPath(base, reference string) string {
	if strings.HasPrefix(reference, "http://") || strings.HasPrefix(reference, "https://") {
		return reference
	}

	origin := originOf(base)
	basePath := strings.TrimPrefix(base, origin)

	var stack []string
	for _, seg := range strings.Split(basePath, "/") {
		if seg != "" {
			stack = append(stack, seg)
		}
	}
	// Drop the base's own filename
	if len(stack) > 0 {
		stack = stack[:len(stack)-1]
	}

	if strings.HasPrefix(reference, "/") {
		stack = stack[:0]
	}
	for _, seg := range strings.Split(reference, "/") {
		switch seg {
		case "", ".":
			// no-op
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}

	if origin == "" {
		return strings.Join(stack, "/")
	}
	return origin + "/" + strings.Join(stack, "/")
}

// originOf returns scheme://host for http(s) locations, or "" when the
// base is not an absolute URL
func originOf(location string) string {
	var rest, prefix string
	switch {
	case strings.HasPrefix(location, "http://"):
		prefix, rest = "http://", location[len("http://"):]
	case strings.HasPrefix(location, "https://"):
		prefix, rest = "https://", location[len("https://"):]
	default:
		return ""
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return prefix + rest
}

// lastSegment returns the final path component of a reference, without
// any query string or fragment
func lastSegment(reference string) string {
	if idx := strings.IndexAny(reference, "?#"); idx >= 0 {
		reference = reference[:idx]
	}
	if idx := strings.LastIndexByte(reference, '/'); idx >= 0 {
		reference = reference[idx+1:]
	}
	return reference
}
