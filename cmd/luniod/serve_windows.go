//go:build windows

package main

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// listenUnix is the Windows transport: a named pipe in place of a Unix
// domain socket, using the same socketPath value as the pipe name.
func listenUnix(socketPath string) (net.Listener, error) {
	return winio.ListenPipe(socketPath, nil)
}
