// Package session tags one run of cmd/netdissect with a short identifier so
// repeated CSV/log output from that run can be correlated, the same role
// the teacher's uuid package plays for a TCP flow's socket-cookie-derived
// UUID. There is no socket cookie to derive from in a dissection CLI, so
// the tag is seeded from the process itself rather than /proc/uptime.
package session

import (
	"fmt"
	"os"
	"time"

	"github.com/m-lab/uuid"
)

// New returns a short, human-readable tag unique to this process run,
// built from the same from-cookie string format the teacher's uuid
// package produces for a TCP flow, seeded with the PID and start time in
// place of a socket cookie.
func New() string {
	cookie := uint64(os.Getpid())<<32 | uint64(time.Now().UnixNano()&0xffffffff)
	return uuid.FromCookie(cookie)
}

// Tag wraps New's result with a fixed prefix, matching the
// "<hostname>_<cookie>" shape the teacher's saver package uses to name
// archive files per flow.
func Tag(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, New())
}
