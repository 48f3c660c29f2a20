package storage

import "net"

func resolveTCPAddr(bind string) (*net.TCPAddr, error) {
	return net.ResolveTCPAddr("tcp", bind)
}
