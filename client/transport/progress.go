package transport

import "io"

// progressReader is an io.Reader reporting the running byte count after
// every read that transferred data.
type progressReader struct {
	r           io.Reader
	transferred int64
	total       int64
	emit        func(Progress)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		pr.emit(Progress{Loaded: pr.transferred, Total: pr.total})
	}

	return n, err
}
