package cli

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Client is a line-oriented connection to a relay server. Inbound lines are
// read on a background goroutine and delivered through Lines.
type Client struct {
	conn  net.Conn
	lines chan string

	mu      sync.Mutex
	readErr error
}

// Dial connects to the relay at addr.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	c := &Client{
		conn:  conn,
		lines: make(chan string, 64),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		c.lines <- strings.TrimRight(scanner.Text(), "\r")
	}
	c.mu.Lock()
	c.readErr = scanner.Err()
	c.mu.Unlock()
}

// Send writes line followed by a newline.
func (c *Client) Send(line string) error {
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		return fmt.Errorf("sending %q: %w", line, err)
	}
	return nil
}

// Lines returns the inbound line channel. It is closed when the server
// closes the connection.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Collect returns every line that arrives until quiet elapses with nothing new.
func (c *Client) Collect(quiet time.Duration) []string {
	var out []string
	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return out
			}
			out = append(out, line)
			timer.Reset(quiet)
		case <-timer.C:
			return out
		}
	}
}

// Err returns the read error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
