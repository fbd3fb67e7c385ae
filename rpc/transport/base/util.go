package base

import (
	"bufio"
	"bytes"
	"io"
	"time"
)

const (
	defaultBufferSize = 4 * 1024 // 4 KB
)

// writeLine writes the data followed by a newline and flushes the writer
func writeLine(w *bufio.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// readLine reads a single line and strips the line terminator (\n or \r\n).
// A final line without terminator is returned before io.EOF is reported.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return bytes.TrimRight(line, "\r"), nil
		}
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// deadline returns the deadline for the next i/o operation, or the zero time if the timeout is disabled
func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// bufferSize returns the configured size or the default size
func bufferSize(size int) int {
	if size > 0 {
		return size
	}
	return defaultBufferSize
}
