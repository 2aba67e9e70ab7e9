package train

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var blankRun = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// ParseSegments splits a training corpus into segments. A corpus that uses
// the explicit "###" delimiter anywhere is split on it; otherwise one or more
// blank lines separate segments. Lines within a segment keep their order;
// empty segments are dropped, so an empty corpus yields no segments.
func ParseSegments(text string) [][]string {
	var blocks []string
	if strings.Contains(text, "###") {
		blocks = strings.Split(text, "###")
	} else {
		blocks = blankRun.Split(text, -1)
	}

	var segments [][]string
	for _, block := range blocks {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if t := strings.TrimSpace(line); t != "" {
				lines = append(lines, t)
			}
		}
		if len(lines) > 0 {
			segments = append(segments, lines)
		}
	}
	return segments
}

// ParseSegmentsFile reads and splits a corpus file.
func ParseSegmentsFile(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read training corpus: %w", err)
	}
	return ParseSegments(string(data)), nil
}
