// Package entropy implements the optional entropy-gatherer collaborator:
// n bytes read from the OS's CSPRNG device, mirroring
// original_source/src/rand.c's rand_gather (open, loop-read until
// satisfied, surface a short read as an error). This is OS-call plumbing
// with no idiomatic third-party substitute in the example corpus, so it
// stays on os.Open/io.ReadFull rather than reaching for a library.
package entropy

import (
	"fmt"
	"io"
	"os"
)

const devURandom = "/dev/urandom"

// URandom is the default collab.EntropyGatherer.
type URandom struct{}

// Gather reads exactly n bytes from /dev/urandom.
func (URandom) Gather(n int) ([]byte, error) {
	f, err := os.Open(devURandom)
	if err != nil {
		return nil, fmt.Errorf("entropy: open %s: %w", devURandom, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("entropy: read %d bytes from %s: %w", n, devURandom, err)
	}
	return buf, nil
}
