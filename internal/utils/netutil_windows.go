//go:build windows

package utils

import (
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

func listenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 0)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
}
