package utils

import (
	"context"
	"net"
	"strconv"
	"time"
)

// CheckPortConnectable reports whether something accepts TCP connections on host:port.
func CheckPortConnectable(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

/**
 * Wait until every port accepts connections
 * @param {context.Context} ctx - Bounds the whole wait
 * @param {string} host - Host to dial
 * @param {[]int} ports - Ports that must all be connectable
 * @param {time.Duration} interval - Delay between rounds
 * @returns {error} ctx.Err() if the deadline passes first
 */
func WaitPortsConnectable(ctx context.Context, host string, ports []int, interval time.Duration) error {
	pending := append([]int(nil), ports...)
	for {
		remaining := pending[:0]
		for _, p := range pending {
			if !CheckPortConnectable(host, p, interval) {
				remaining = append(remaining, p)
			}
		}
		pending = remaining
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// CheckPortListenable reports whether port can be bound on the loopback address.
func CheckPortListenable(port int) bool {
	lc := listenConfig()
	l, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// ListenEphemeral binds 127.0.0.1:0 and returns the port the OS picked.
// The listener is closed before returning.
func ListenEphemeral() (int, error) {
	lc := listenConfig()
	l, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
