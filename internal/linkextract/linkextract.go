// Package linkextract recognizes internal wiki-style references and
// external URLs in note body text.
package linkextract

import (
	"regexp"
	"strings"
)

// InternalRef is one [[target]] or [[target|display]] occurrence.
type InternalRef struct {
	Target   string // text before the |, trimmed
	Display  string // text after the |, or Target when absent
	Position int    // byte offset of the opening [[
}

// ExternalRef is one bare URL, markdown link, or image occurrence.
type ExternalRef struct {
	URL      string
	Label    string // empty for bare URLs
	Position int    // byte offset of the match
}

var (
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|([^\[\]]+))?\]\]`)
	mdLinkPattern   = regexp.MustCompile(`!?\[([^\]]*)\]\((https?://[^)\s]+)\)`)
	bareURLPattern  = regexp.MustCompile(`https?://[^\s)\]}"'<>]+`)
)

// Internal returns every wiki-style reference in body, in document order.
// No resolution against known notes happens here; the target text is
// returned verbatim for the caller to resolve.
func Internal(body string) []InternalRef {
	var refs []InternalRef
	for _, m := range wikiLinkPattern.FindAllStringSubmatchIndex(body, -1) {
		target := strings.TrimSpace(body[m[2]:m[3]])
		if target == "" {
			continue
		}
		display := target
		if m[4] != -1 {
			display = strings.TrimSpace(body[m[4]:m[5]])
		}
		refs = append(refs, InternalRef{Target: target, Display: display, Position: m[0]})
	}
	return refs
}

// External returns every URL occurrence in body: markdown links, images,
// and bare URLs. No de-duplication is performed; when a markdown link and
// the bare-URL pattern overlap the same text, both occurrences are
// reported with their positions.
func External(body string) []ExternalRef {
	var refs []ExternalRef

	for _, m := range mdLinkPattern.FindAllStringSubmatchIndex(body, -1) {
		label := body[m[2]:m[3]]
		url := body[m[4]:m[5]]
		refs = append(refs, ExternalRef{URL: url, Label: label, Position: m[0]})
	}

	for _, m := range bareURLPattern.FindAllStringIndex(body, -1) {
		url := strings.TrimRight(body[m[0]:m[1]], ".,;:!?")
		refs = append(refs, ExternalRef{URL: url, Position: m[0]})
	}

	sortByPosition(refs)
	return refs
}

func sortByPosition(refs []ExternalRef) {
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j].Position < refs[j-1].Position; j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
}
