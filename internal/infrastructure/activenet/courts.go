package activenet

import "fmt"

// Courts is the bookable resource roster at the McFetridge facility. The
// grid identifies cells by these exact names in aria-labels.
var Courts = []string{
	"McFetridge Tennis Ct01",
	"McFetridge Tennis Ct02",
	"McFetridge Tennis Ct03",
	"McFetridge Tennis Ct04",
	"McFetridge Tennis Ct05",
	"McFetridge Tennis Ct06",
}

// Bookable hours, inclusive: 7 AM through 10 PM starts.
const (
	FirstHour = 7
	LastHour  = 22
)

func KnownCourt(name string) bool {
	for _, c := range Courts {
		if c == name {
			return true
		}
	}
	return false
}

func BookableHour(h int) bool { return h >= FirstHour && h <= LastHour }

// HourLabel renders an hour the way the grid labels it: 12-hour clock, no
// leading zero ("7:00 AM"). Cell matching is substring-based, so a site
// variant that zero-pads ("07:00 AM") still contains this label.
func HourLabel(h int) string {
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, meridiem)
}

// dateFormat is the US-style value the date widget expects.
const dateFormat = "01/02/2006"
