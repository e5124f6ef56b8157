package forge

import (
	"net"
	"os"
	"syscall"
)

// listenTCP opens an IPv4 SOCK_STREAM listening socket with SO_REUSEADDR
// set and the given backlog. net.Listen does not expose
// backlog control, so the socket is built directly via syscall and
// handed back to the net package through net.FileListener.
func listenTCP(host string, port, backlog int) (net.Listener, error) {
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	var addr [4]byte
	if host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			resolved, err := net.ResolveIPAddr("ip4", host)
			if err != nil {
				syscall.Close(fd)
				return nil, err
			}
			ip = resolved.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			copy(addr[:], ip4)
		}
	}

	sa := &syscall.SockaddrInet4{Port: port, Addr: addr}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	if err := syscall.Listen(fd, backlog); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	file := os.NewFile(uintptr(fd), "forge-listener")
	ln, err := net.FileListener(file)
	_ = file.Close()
	if err != nil {
		return nil, err
	}
	return ln, nil
}
