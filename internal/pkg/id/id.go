package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. ulid.Make draws from a process-wide monotonic
// entropy source and is safe for concurrent use.
func New() string {
	return ulid.Make().String()
}
