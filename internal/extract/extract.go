// Package extract pulls URLs out of message text and media previews.
//
// Extraction is a pure function of its inputs: no I/O, no hidden state,
// byte-identical output for identical input. The monitor leans on that for
// testing and for keeping handler latency bounded.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shankarsamidala/deals/internal/domain"
)

var (
	// schemeURLPattern matches fully-qualified http/https URLs.
	schemeURLPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

	// bareDomainPattern matches domain-looking tokens with an optional path,
	// e.g. "example.com/path". Only consulted when no scheme-qualified URL
	// was found anywhere in the text.
	bareDomainPattern = regexp.MustCompile(`(?:www\.)?(?:[a-zA-Z0-9][a-zA-Z0-9-]*\.)+[a-zA-Z]{2,6}(?:/[^\s<>"']*)?`)
)

// trailingPunct are characters stripped from the end of a matched URL so that
// surrounding punctuation ("see https://a.com/x!") never leaks into the link.
const trailingPunct = `.,!?;:'")]}>`

// Normalize trims trailing punctuation from a raw URL match.
func Normalize(raw string) string {
	return strings.TrimRight(raw, trailingPunct)
}

// Domain returns the authority component of a URL, or "unknown" when the URL
// does not parse. It never fails.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}

// Links extracts every URL from a message, in order of first appearance, with
// the media preview URL (if any) appended last.
//
// Precedence: scheme-qualified links win outright. If any is present, the
// bare-domain scan is skipped entirely. Duplicates are dropped using a
// case-insensitive comparison of the normalized URL.
func Links(text string, media *domain.MediaRef) []domain.ExtractedLink {
	var links []domain.ExtractedLink
	seen := make(map[string]bool)

	add := func(rawURL string, source domain.LinkSource) {
		u := Normalize(rawURL)
		if u == "" {
			return
		}
		key := strings.ToLower(u)
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, domain.ExtractedLink{
			URL:    u,
			Source: source,
			Domain: Domain(u),
		})
	}

	if text != "" {
		explicit := schemeURLPattern.FindAllString(text, -1)
		for _, m := range explicit {
			add(m, domain.SourceExplicit)
		}

		// Bare domains are only considered when the message carried no
		// explicit link at all.
		if len(explicit) == 0 {
			for _, m := range bareDomainPattern.FindAllString(text, -1) {
				add("https://"+Normalize(m), domain.SourceBareDomain)
			}
		}
	}

	if media != nil && media.PreviewURL != "" {
		add(media.PreviewURL, domain.SourceMediaPreview)
	}

	return links
}
