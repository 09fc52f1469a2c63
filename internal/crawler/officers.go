package crawler

import (
	"strings"

	"github.com/stwalsh4118/bizsearch/internal/models"
)

// officerToken introduces each officer entry in the rendered section text.
const officerToken = "Title"

// ParseOfficers splits the rendered text of the "Officer/Director Detail"
// section into officer records.
//
// The text is cut on every occurrence of "Title"; the part before the first
// one is the section header and is discarded. In each remaining part the first
// non-empty line is the title, the second the name, and the rest the address.
// Parts with fewer than two lines are dropped.
func ParseOfficers(text string) []models.Officer {
	segments := strings.Split(text, officerToken)
	officers := make([]models.Officer, 0, len(segments))

	for _, segment := range segments[1:] {
		lines := nonEmptyLines(segment)
		if len(lines) < 2 {
			continue
		}
		officers = append(officers, models.Officer{
			Title:   lines[0],
			Name:    lines[1],
			Address: strings.Join(lines[2:], "\n"),
		})
	}
	return officers
}

func nonEmptyLines(s string) []string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
