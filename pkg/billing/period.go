package billing

import "time"

// NextPeriod returns the anchored FREE-plan window that contains now.
//
// Boundaries are always a whole number of PeriodLength steps away from anchor,
// so repeated resets never drift, no matter how many windows passed unobserved.
// The result satisfies start <= now < end.
func NextPeriod(anchor, now time.Time) (start, end time.Time) {
	elapsed := now.Sub(anchor)
	n := elapsed / PeriodLength
	// integer division truncates toward zero; floor it for a clock behind the anchor
	if elapsed%PeriodLength < 0 {
		n--
	}
	start = anchor.Add(n * PeriodLength)
	return start, start.Add(PeriodLength)
}
