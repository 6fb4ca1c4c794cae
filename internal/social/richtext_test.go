package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFacetsTags(t *testing.T) {
	text := "Reflecting on patterns #AI #Autonomous"
	facets := DetectFacets(text)
	require.Len(t, facets, 2)

	assert.Equal(t, "AI", facets[0].Features[0].Tag)
	assert.Equal(t, facetTag, facets[0].Features[0].Type)
	assert.Equal(t, "#AI", text[facets[0].Index.ByteStart:facets[0].Index.ByteEnd])
	assert.Equal(t, "#Autonomous", text[facets[1].Index.ByteStart:facets[1].Index.ByteEnd])
}

func TestDetectFacetsLinkTrimsPunctuation(t *testing.T) {
	text := "read https://example.com/a?b=1. then rest"
	facets := DetectFacets(text)
	require.Len(t, facets, 1)
	assert.Equal(t, facetLink, facets[0].Features[0].Type)
	assert.Equal(t, "https://example.com/a?b=1", facets[0].Features[0].URI)
	assert.Equal(t, "https://example.com/a?b=1", text[facets[0].Index.ByteStart:facets[0].Index.ByteEnd])
}

func TestDetectFacetsUsesByteOffsets(t *testing.T) {
	text := "héllo #tag"
	facets := DetectFacets(text)
	require.Len(t, facets, 1)
	assert.Equal(t, 7, facets[0].Index.ByteStart)
	assert.Equal(t, 11, facets[0].Index.ByteEnd)
}

func TestDetectFacetsIgnoresNumericAndEmbedded(t *testing.T) {
	assert.Empty(t, DetectFacets("issue #123 and foo#bar"))
	assert.Empty(t, DetectFacets("no facets here"))
}
