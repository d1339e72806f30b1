package render

import "errors"

// Input errors: the caller supplied nothing usable. Surfaced with a
// remediation hint, never retried, and raised before any network call.
var (
	ErrNoContent         = errors.New("no content provided: supply videoUrls, a template, or an edit")
	ErrNoTemplateContent = errors.New("template has no content: supply imageUrls, a title, or a subtitle")
)
