package search

import (
	"net/url"
	"regexp"
	"strings"
)

// Source extraction is a best-effort heuristic: answers are scanned for a
// trailing SOURCES: section and URLs with nearby title-like text. It is
// deliberately kept apart from the orchestration flow so that a provider
// gaining a structured citation API can swap this out without touching the
// engine. Extraction is lossy and must never be treated as authoritative.

var (
	sourcesMarkerRe = regexp.MustCompile(`(?im)^\s*(?:\*\*)?sources?(?:\*\*)?\s*:`)
	urlRe           = regexp.MustCompile(`https?://[^\s)\]>"']+`)
)

// extractSources splits an answer into its content and the citations listed
// in a trailing SOURCES: section. When no marker exists the content is
// returned untouched with no sources.
func extractSources(content string) (string, []Source) {
	loc := sourcesMarkerRe.FindStringIndex(content)
	if loc == nil {
		return strings.TrimSpace(content), nil
	}

	body := strings.TrimSpace(content[:loc[0]])
	section := content[loc[1]:]

	var sources []Source
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•0123456789[]. "))
		if line == "" {
			continue
		}
		rawURL := urlRe.FindString(line)
		if rawURL == "" {
			continue
		}
		rawURL = strings.TrimRight(rawURL, ".,;")
		title := strings.TrimSpace(strings.Trim(strings.Replace(line, rawURL, "", 1), " -–:()"))
		if title == "" {
			title = siteName(rawURL)
		}
		sources = append(sources, Source{Title: title, URL: rawURL})
	}
	return body, sources
}

// siteName returns the hostname of a URL, or empty if it does not parse.
func siteName(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
