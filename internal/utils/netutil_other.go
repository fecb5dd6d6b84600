//go:build !unix && !windows

package utils

import "net"

func listenConfig() net.ListenConfig { return net.ListenConfig{} }
