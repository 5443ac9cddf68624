package netutil

import "net"

// FreeTCPPort asks the kernel for a free open port that is ready to use.
// Intended for tests that need to bind listeners without colliding.
func FreeTCPPort() int {
	a, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		panic(err)
	}
	l, err := net.ListenTCP("tcp", a)
	if err != nil {
		panic(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
