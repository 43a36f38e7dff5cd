package statsdline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurity(t *testing.T) {
	line := []byte("a.b.c.__tag1=v1.__tag2=v2:v2:42.000|ms")
	before := bytes.Clone(line)

	_, err := Parse(line)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, line), "Parse must not mutate its input")
}

func TestParseKeyWithColons(t *testing.T) {
	rec, err := Parse([]byte("a.b.c.__tag1=v1.__tag2=v2:v2:42.000|ms"))
	require.NoError(t, err)
	assert.Equal(t, "a.b.c.__tag1=v1.__tag2=v2:v2", rec.Key)
	assert.Equal(t, 42.0, rec.Value)
	assert.Equal(t, MetricTimer, rec.Type)
	assert.Equal(t, 1.0, rec.PresamplingValue)
}

func TestParsePresampling(t *testing.T) {
	rec, err := Parse([]byte("test.srv.req:2.5|ms|@0.2"))
	require.NoError(t, err)
	assert.Equal(t, "test.srv.req", rec.Key)
	assert.Equal(t, 2.5, rec.Value)
	assert.Equal(t, MetricTimer, rec.Type)
	assert.Equal(t, 0.2, rec.PresamplingValue)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"missing colon":        "novalue|c",
		"missing pipe":         "key:1.0",
		"empty key":            ":1|c",
		"unknown type":         "key:1|zz",
		"empty rate":           "key:1|c|@",
		"unparseable rate":     "key:1|c|@nope",
		"trailing non-at data": "key:1|c|bogus",
		"unparseable value":    "key:abc|c",
		"zero consumed value":  "key:|c",
	}

	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(line))
			assert.ErrorIs(t, err, ErrInvalidLine)
		})
	}
}

// The value and the rate are each located by an independent boundary
// scan, exactly as the source validator does it with strtod plus a
// separate memchr for '|'. Bytes left over after either parse are
// silently ignored rather than rejected.
func TestParseIgnoresTrailingGarbageAfterBoundaryScans(t *testing.T) {
	rec, err := Parse([]byte("key:1|c|@0.5|x"))
	require.NoError(t, err)
	assert.Equal(t, "key", rec.Key)
	assert.Equal(t, 1.0, rec.Value)
	assert.Equal(t, MetricCounter, rec.Type)
	assert.Equal(t, 0.5, rec.PresamplingValue)

	rec, err = Parse([]byte("key:1abc|c"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Value)
	assert.Equal(t, MetricCounter, rec.Type)
}

func TestParseAllTypes(t *testing.T) {
	cases := []struct {
		tag string
		typ MetricType
	}{
		{"c", MetricCounter},
		{"ms", MetricTimer},
		{"kv", MetricKeyValue},
		{"g", MetricGauge},
		{"h", MetricHistogram},
		{"s", MetricSet},
	}

	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			rec, err := Parse([]byte("k:1|" + tc.tag))
			require.NoError(t, err)
			assert.Equal(t, tc.typ, rec.Type)
		})
	}
}
