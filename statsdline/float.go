package statsdline

import "strconv"

// scanFloatPrefix parses the longest leading prefix of b that forms a
// valid decimal floating point literal (optional sign, digits, optional
// fraction, optional exponent), the way C's strtod does for decimal
// input, and reports how many bytes it consumed. strtod's hex, inf and
// nan forms are not recognised. strconv.ParseFloat requires the whole string to
// be a valid number, so it cannot be used directly against a line that
// still has "|TYPE..." trailing after the value; this scanner finds the
// boundary first and only then hands the isolated prefix to ParseFloat.
func scanFloatPrefix(b []byte) (value float64, consumed int, ok bool) {
	n := len(b)
	i := 0

	if i < n && (b[i] == '+' || b[i] == '-') {
		i++
	}

	hasDigits := false
	for i < n && isDigit(b[i]) {
		i++
		hasDigits = true
	}

	if i < n && b[i] == '.' {
		i++
		for i < n && isDigit(b[i]) {
			i++
			hasDigits = true
		}
	}

	if !hasDigits {
		return 0, 0, false
	}

	end := i
	if i < n && (b[i] == 'e' || b[i] == 'E') {
		j := i + 1
		if j < n && (b[j] == '+' || b[j] == '-') {
			j++
		}
		expStart := j
		for j < n && isDigit(b[j]) {
			j++
		}
		if j > expStart {
			end = j
		}
	}

	v, err := strconv.ParseFloat(string(b[:end]), 64)
	if err != nil {
		return 0, 0, false
	}
	return v, end, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
