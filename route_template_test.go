package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplateBasic(t *testing.T) {
	tmpl, err := parseTemplate("/a/{b}/c/{d}")
	require.NoError(t, err)
	assert.Equal(t, 2, tmpl.placeholderCount)
	assert.Equal(t, 2, tmpl.nonVariadicSegments)
}

func TestParseTemplateRejectsAdjacentPlaceholders(t *testing.T) {
	_, err := parseTemplate("/a/{b}{c}")
	require.Error(t, err)
}

func TestParseTemplateRejectsDuplicateNames(t *testing.T) {
	_, err := parseTemplate("/a/{b}/c/{b}")
	require.Error(t, err)
}

func TestTemplateMatch(t *testing.T) {
	tmpl, err := parseTemplate("/a/{b}_is2/c/{d}_is2")
	require.NoError(t, err)

	caps, ok := tmpl.match([]string{"a", "foo_is2", "c", "bar_is2"})
	require.True(t, ok)
	assert.Equal(t, "foo", caps["b"])
	assert.Equal(t, "bar", caps["d"])

	_, ok = tmpl.match([]string{"a", "foo", "c", "bar_is2"})
	assert.False(t, ok)
}

func TestTemplateMatchSegmentCountMismatch(t *testing.T) {
	tmpl, err := parseTemplate("/a/{b}")
	require.NoError(t, err)
	_, ok := tmpl.match([]string{"a", "b", "c"})
	assert.False(t, ok)
}

// TestPriorityOrderingS3 exercises spec scenario S3: two templates
// "/a/{b}_is2/c/{d}_is2" and "/a/{b}/c/{d}" both match
// "/a/foo_is2/c/bar_is2"; the more-literal template must win regardless
// of registration order.
func TestPriorityOrderingS3(t *testing.T) {
	literal, err := parseTemplate("/a/{b}_is2/c/{d}_is2")
	require.NoError(t, err)
	bare, err := parseTemplate("/a/{b}/c/{d}")
	require.NoError(t, err)

	assert.True(t, bare.priority().less(literal.priority()))
}

func TestPriorityOrderingDeterministic(t *testing.T) {
	rh := NewRouteHandler("/")
	_, err := rh.Register("/a/{b}/c/{d}", func(b, d string) string { return b + d })
	require.NoError(t, err)
	_, err = rh.Register("/a/{b}_is2/c/{d}_is2", func(b, d string) string { return b + d })
	require.NoError(t, err)

	dr := rh.matchVariadic("/a/foo_is2/c/bar_is2")
	require.NotNil(t, dr)
	assert.Equal(t, "foo", dr.Captures["b"])
}

func TestAmbiguityDetection(t *testing.T) {
	rh := NewRouteHandler("/")
	_, err := rh.Register("/a/{b}/c/{d}", func(b, d string) string { return b + d })
	require.NoError(t, err)
	_, err = rh.Register("/a/{x}/c/{y}", func(x, y string) string { return x + y })
	require.Error(t, err)
}
