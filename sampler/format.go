package sampler

import "strconv"

// formatDouble renders v using the shortest decimal representation that
// round-trips exactly, equivalent to C's "%g" for the purposes of this
// wire format.
func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
