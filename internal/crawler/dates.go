package crawler

import (
	"regexp"
	"strings"
	"time"
)

const registryDateLayout = "01/02/2006"

var registryDate = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// ParseDate parses a registry date in MM/DD/YYYY form. It returns nil for
// empty input, any other shape (single-digit parts, ISO dates, trailing text)
// and calendar-invalid values such as 02/30/2020. Dates are UTC midnight.
func ParseDate(s string) *time.Time {
	m := registryDate.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}

	t, err := time.Parse(registryDateLayout, m[1]+"/"+m[2]+"/"+m[3])
	if err != nil {
		return nil
	}
	return &t
}
