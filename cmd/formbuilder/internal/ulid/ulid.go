// Package ulid generates the lexicographically sortable identifiers used as
// primary key values for text-keyed tables when a submitted form leaves the
// key empty.
package ulid

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Length is the size of an encoded ULID
const Length = ulid.EncodedSize

// Generate creates a new ULID using the current timestamp and secure random data
func Generate() string {
	return GenerateAt(time.Now())
}

// GenerateAt creates a new ULID for the given timestamp
func GenerateAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
