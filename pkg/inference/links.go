package inference

import (
	"net/url"
	"strings"
)

const (
	googleSearchBase = "https://www.google.es/search?"
	wikipediaBase    = "https://en.wikipedia.org/wiki/"
)

// GoogleImagesLink image search link for a class name
func GoogleImagesLink(className string) string {
	params := url.Values{}
	params.Set("tbm", "isch")
	params.Set("q", className)
	return googleSearchBase + params.Encode()
}

// WikipediaLink encyclopedia link for a class name
func WikipediaLink(className string) string {
	return wikipediaBase + strings.ReplaceAll(className, " ", "_")
}
