package social

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	facetLink = "app.bsky.richtext.facet#link"
	facetTag  = "app.bsky.richtext.facet#tag"

	maxTagLength = 64
)

// Facet annotates a byte range of the post text.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

// ByteSlice offsets are UTF-8 byte offsets, end exclusive.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type FacetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

var (
	linkRe = regexp.MustCompile(`https?://[^\s]+`)
	tagRe  = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_]*[\p{L}_][\p{L}\p{N}_]*)`)
)

// DetectFacets finds links and hashtags in text.
func DetectFacets(text string) []Facet {
	var facets []Facet

	for _, m := range linkRe.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		uri := strings.TrimRight(text[start:end], ".,;:!?)\"'")
		end = start + len(uri)
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: start, ByteEnd: end},
			Features: []FacetFeature{{Type: facetLink, URI: uri}},
		})
	}

	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		tagStart, tagEnd := m[2], m[3]
		tag := text[tagStart:tagEnd]
		if utf8.RuneCountInString(tag) > maxTagLength {
			continue
		}
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: tagStart - 1, ByteEnd: tagEnd},
			Features: []FacetFeature{{Type: facetTag, Tag: tag}},
		})
	}

	return facets
}
