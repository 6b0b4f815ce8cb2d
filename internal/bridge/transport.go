// internal/bridge/transport.go
package bridge

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// commandConn is the exact contract one command round trip uses.
// A connected *net.UDPConn satisfies it; tests substitute a fake.
type commandConn interface {
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Read(p []byte) (int, error)
	Close() error
}

// dialFunc opens a connected datagram socket for one command.
// Stateless: 1 command = 1 socket.
type dialFunc func(host string, port int) (commandConn, error)

func dialUDP(host string, port int) (commandConn, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}

// awaitResponse waits up to ackTimeout for one response datagram.
// Timeouts and read failures both come back as "no response"; only the
// send path distinguishes hard channel failure.
func awaitResponse(conn commandConn) string {
	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return ""
		}
		return ""
	}

	return string(trimLine(buf[:n]))
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
