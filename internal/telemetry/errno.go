// internal/telemetry/errno.go
package telemetry

import (
	"errors"
	"fmt"
	"syscall"
)

// describeBindError maps a socket setup failure onto guidance a user can
// act on, without assuming concrete error types.
func describeBindError(host string, port int, err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EADDRINUSE:
			return fmt.Sprintf(
				"port %d is already in use - another app (or a second copy of this one) is bound to it",
				port,
			)
		case syscall.EACCES, syscall.EPERM:
			return fmt.Sprintf(
				"permission denied binding %s:%d - pick a port above 1024",
				host, port,
			)
		case syscall.EADDRNOTAVAIL:
			return fmt.Sprintf(
				"address %s is not local to this machine - check the listen host",
				host,
			)
		case syscall.ENETDOWN, syscall.ENETUNREACH:
			return "network is down or unreachable"
		}
	}

	return fmt.Sprintf("could not open %s:%d: %v", host, port, err)
}
