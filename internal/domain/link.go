package domain

// LinkSource classifies how a URL was found in a message.
type LinkSource string

const (
	// SourceExplicit is a scheme-qualified URL present verbatim in the text.
	SourceExplicit LinkSource = "explicit-link"
	// SourceBareDomain is a bare domain pattern upgraded to an https URL.
	SourceBareDomain LinkSource = "bare-domain"
	// SourceMediaPreview is a URL taken from an attached webpage preview.
	SourceMediaPreview LinkSource = "media-preview"
)

// ExtractedLink is one URL pulled out of a message. It lives for a single
// processing pass; ownership transfers to whichever sink receives it.
type ExtractedLink struct {
	URL    string     `json:"url"`
	Source LinkSource `json:"source"`
	Domain string     `json:"domain"`
}
