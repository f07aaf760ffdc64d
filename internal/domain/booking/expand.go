package booking

import "time"

// Units expands a window into its contiguous ordered hour-units on date.
// Each unit is claimed independently against the grid.
func (w TimeWindow) Units(date time.Time) []SlotUnit {
	units := make([]SlotUnit, 0, w.Hours)
	for i := 0; i < w.Hours; i++ {
		units = append(units, SlotUnit{Date: date, Hour: w.StartHour + i})
	}
	return units
}

// ExpandWindows expands every alternative window of the request, preserving
// request order. The outer slice index matches BookingRequest.Windows.
func ExpandWindows(req BookingRequest) [][]SlotUnit {
	out := make([][]SlotUnit, 0, len(req.Windows))
	for _, w := range req.Windows {
		out = append(out, w.Units(req.Date))
	}
	return out
}
