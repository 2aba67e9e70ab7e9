package train

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegmentsBlankLines(t *testing.T) {
	text := "robot won't boot\nbattery is dead\n\n\nconsole flashes pink\nAP is offline\n"
	segments := ParseSegments(text)
	require.Len(t, segments, 2)
	assert.Equal(t, []string{"robot won't boot", "battery is dead"}, segments[0])
	assert.Equal(t, []string{"console flashes pink", "AP is offline"}, segments[1])
}

func TestParseSegmentsHashDelimiter(t *testing.T) {
	text := "robot won't boot\nbattery is dead\n###\nconsole flashes pink\n"
	segments := ParseSegments(text)
	require.Len(t, segments, 2)
	assert.Equal(t, []string{"console flashes pink"}, segments[1])
}

func TestParseSegmentsTrimsAndDropsEmpty(t *testing.T) {
	text := "  robot won't boot  \n\n\n\n   \n\n"
	segments := ParseSegments(text)
	require.Len(t, segments, 1)
	assert.Equal(t, []string{"robot won't boot"}, segments[0])
}

func TestParseSegmentsEmptyCorpus(t *testing.T) {
	assert.Empty(t, ParseSegments(""))
	assert.Empty(t, ParseSegments("\n\n  \n"))
}

func TestParseSegmentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n\nb\n"), 0o644))

	segments, err := ParseSegmentsFile(path)
	require.NoError(t, err)
	assert.Len(t, segments, 2)

	_, err = ParseSegmentsFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
