package server

import (
	"net"
	"os"
	"strings"

	"github.com/nosan/embedded-cassandra-sub005/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

// ParseListenAddr accepts "host:port" for TCP and "unix:/path" for a Unix socket.
func ParseListenAddr(s string) ListenAddr {
	if path, ok := strings.CutPrefix(s, "unix:"); ok {
		return ListenAddr{Network: "unix", Address: path}
	}
	return ListenAddr{Network: "tcp", Address: s}
}

/**
 * Create TCP and Unix socket listeners
 * @param {[]ListenAddr} addrs - Listener Address
 * @returns {[]net.Listener} Array of created listeners
 * @returns {error} Last listener creation error
 * @description
 * - Removes a stale Unix socket file before listening on it
 * - Addresses that fail are logged and skipped
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				lastErr = err
				continue
			}
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		listeners = append(listeners, l)
	}
	return listeners, lastErr
}
