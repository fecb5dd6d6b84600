//go:build !unix

package ports

import "errors"

var errFlockUnavailable = errors.New("flock not available on this platform")

type fileLock struct{}

// acquireFileLock always fails; Allocate then relies on the in-process mutex.
func acquireFileLock() (*fileLock, error) {
	return nil, errFlockUnavailable
}

func (l *fileLock) Release() {}
