package lineproto

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// MaxLineLength caps a single inbound line. Longer lines end the session.
const MaxLineLength = 8192

// ErrLineTooLong is returned by ReadLine when a line exceeds MaxLineLength.
var ErrLineTooLong = errors.New("line too long")

// Conn wraps a TCP connection with newline framing.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration

	// skipLF is set after a line ended on \r, so a following \n is dropped
	// instead of read as an empty line.
	skipLF bool

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps a raw TCP connection. A zero timeout disables that deadline.
//
// Precondition: raw must be a valid, open network connection.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadLine reads a single line terminated by \n, \r\n or a bare \r. The
// terminator and any other control characters except tab are dropped. A line
// ending in \r is returned at once, without waiting for the next byte.
//
// Precondition: ReadLine must not be called concurrently.
// Postcondition: Returns the next line, or an error (including io.EOF).
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}

		skip := c.skipLF
		c.skipLF = false
		if b == '\n' {
			if skip {
				continue
			}
			break
		}
		if b == '\r' {
			c.skipLF = true
			break
		}
		if (b < 32 && b != '\t') || b == 127 {
			continue
		}

		if line.Len() >= MaxLineLength {
			return "", ErrLineTooLong
		}
		line.WriteByte(b)
	}

	return line.String(), nil
}

// WriteLine sends text followed by \n.
//
// Precondition: text should not contain newline characters.
// Postcondition: text + \n is written to the connection.
func (c *Conn) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := fmt.Fprintf(c.raw, "%s\n", text); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// Close closes the underlying TCP connection. Safe to call more than once;
// a pending ReadLine returns an error.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
