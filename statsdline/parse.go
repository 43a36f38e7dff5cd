// Package statsdline validates and parses a single StatsD protocol line
// into a typed Record, the way the teacher's statsd input plugin turns a
// raw line into its internal metric struct before aggregation.
package statsdline

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrInvalidLine is the sentinel returned for any malformed line, mirroring
// the teacher's errParsing so callers can use errors.Is to decide whether
// to drop the line versus treat it as a fatal condition.
var ErrInvalidLine = errors.New("statsdline: invalid line")

// Parse validates line and, on success, returns the record it describes.
// line is never mutated. The value separator is the last ':' in the line,
// since keys may themselves embed colons (tag-encoded keys).
func Parse(line []byte) (Record, error) {
	idx := bytes.LastIndexByte(line, ':')
	if idx < 0 {
		return Record{}, fmt.Errorf("%w: missing ':'", ErrInvalidLine)
	}

	key := line[:idx]
	if len(key) == 0 {
		return Record{}, fmt.Errorf("%w: empty key", ErrInvalidLine)
	}

	rest := line[idx+1:]

	// The value and the '|' that ends it are located independently, the
	// way the source's validator does it: strtod parses the leading
	// numeric prefix, and a separate memchr-style scan finds the first
	// '|' in the whole remainder. Nothing requires the two to land on
	// the same byte, so any bytes strtod didn't consume before the pipe
	// are silently ignored rather than rejected.
	value, _, ok := scanFloatPrefix(rest)
	if !ok {
		return Record{}, fmt.Errorf("%w: unparseable value", ErrInvalidLine)
	}

	pipeIdx := bytes.IndexByte(rest, '|')
	if pipeIdx < 0 {
		return Record{}, fmt.Errorf("%w: missing '|' after value", ErrInvalidLine)
	}
	rest = rest[pipeIdx+1:]

	var typeTag []byte
	var afterType []byte
	if pipeIdx := bytes.IndexByte(rest, '|'); pipeIdx >= 0 {
		typeTag = rest[:pipeIdx]
		afterType = rest[pipeIdx+1:]
	} else {
		typeTag = rest
		afterType = nil
	}

	mtype, known := typeTags[string(typeTag)]
	if !known {
		return Record{}, fmt.Errorf("%w: unknown type %q", ErrInvalidLine, typeTag)
	}

	presampling := 1.0
	if afterType != nil {
		if len(afterType) == 0 || afterType[0] != '@' {
			return Record{}, fmt.Errorf("%w: trailing data after type", ErrInvalidLine)
		}
		rateBytes := afterType[1:]
		if len(rateBytes) == 0 {
			return Record{}, fmt.Errorf("%w: empty sample rate", ErrInvalidLine)
		}
		// As with the value above, trailing bytes after the parsed rate
		// (e.g. a further "|..." segment) are not an error: strtod's
		// consumption point is never compared against the end of the
		// line.
		rate, _, rok := scanFloatPrefix(rateBytes)
		if !rok {
			return Record{}, fmt.Errorf("%w: unparseable sample rate", ErrInvalidLine)
		}
		presampling = rate
	}

	return Record{
		Key:              string(key),
		Value:            value,
		Type:             mtype,
		PresamplingValue: presampling,
	}, nil
}
