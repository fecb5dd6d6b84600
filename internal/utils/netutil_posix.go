//go:build unix

package utils

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenConfig disables SO_REUSEADDR so a port in TIME_WAIT is reported busy
func listenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 0)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
}
