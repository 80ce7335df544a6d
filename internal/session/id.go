package session

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NewID returns a session id of the form yyyyMMdd-HHmmss-SSS-xxxx (UTC time
// plus four random hex digits). Ids only need to be unique in practice.
func NewID(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s-%03d-%04x",
		now.Format("20060102-150405"),
		now.Nanosecond()/int(time.Millisecond),
		rand.IntN(0x10000),
	)
}
