package httpserve

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// SendFile streams count bytes from file starting at offset directly onto
// conn using the sendfile(2) syscall, looping across partial transfers and
// retrying on EINTR/EAGAIN exactly as the reference implementation does.
// conn must be backed by a TCP socket (the only kind this server accepts).
func SendFile(conn *net.TCPConn, file *os.File, offset int64, count int64) (int64, error) {
	connFile, err := conn.File()
	if err != nil {
		return 0, err
	}
	defer connFile.Close()

	connFd := int(connFile.Fd())
	fileFd := int(file.Fd())

	var written int64
	for written < count {
		n, err := unix.Sendfile(connFd, fileFd, &offset, int(count-written))
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return written, err
		}
		if n == 0 {
			break
		}
		written += int64(n)
	}
	return written, nil
}
