package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes dangerous HTML elements and attributes from rendered
// pages while keeping heading anchors, code language classes and callouts.
//
// Thread-safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

var (
	codeClass    = regexp.MustCompile(`^language-[\w+#-]+$`)
	calloutClass = regexp.MustCompile(`^callout( callout-[a-z]+)?$`)
	anchorID     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// NewSanitizer creates a sanitizer based on the UGC policy.
func NewSanitizer() *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.AllowAttrs("id").Matching(anchorID).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowAttrs("class").Matching(codeClass).OnElements("code")
	policy.AllowAttrs("class").Matching(calloutClass).OnElements("div")

	return &Sanitizer{policy: policy}
}

// Sanitize returns html with unsafe markup removed.
func (s *Sanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
