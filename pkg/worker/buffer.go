package worker

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
)

// capBuffer accumulates up to size bytes and silently drops the rest,
// remembering that it did.
type capBuffer struct {
	mu        sync.Mutex
	b         []byte
	size      int
	truncated bool
}

func newCapBuffer(n int) *capBuffer {
	if n <= 0 {
		n = 1 << 20
	}
	return &capBuffer{size: n}
}

func (c *capBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.size - len(c.b)
	if room <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.b = append(c.b, p[:room]...)
		c.truncated = true
		return len(p), nil
	}
	c.b = append(c.b, p...)
	return len(p), nil
}

func (c *capBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.b)
}

func (c *capBuffer) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}

// drain copies r into w until EOF. Read errors other than EOF are returned;
// a closed pipe after the process exits reads as EOF.
func drain(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	buf := make([]byte, 32<<10)
	for {
		n, err := br.Read(buf)
		if n > 0 {
			_, _ = w.Write(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}
