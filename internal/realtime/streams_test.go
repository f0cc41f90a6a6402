package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassStreamRoundTrip(t *testing.T) {
	stream := ClassStream(" ABC-123 ", KindDocuments)
	require.Equal(t, "class.abc-123.documents", stream)

	classID, kind, ok := ParseClassStream(stream)
	require.True(t, ok)
	require.Equal(t, "abc-123", classID)
	require.Equal(t, KindDocuments, kind)
}

func TestParseClassStreamRejectsUnknown(t *testing.T) {
	for _, stream := range []string{"notifications", "class.", "class.c1.", "class.c1.grades", "class..posts"} {
		_, _, ok := ParseClassStream(stream)
		require.False(t, ok, stream)
	}
}
