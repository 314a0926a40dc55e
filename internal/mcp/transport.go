package mcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const contentLengthHeader = "content-length"

var errMissingContentLength = errors.New("frame without Content-Length header")

// writeFrame writes payload as one Content-Length framed message.
func writeFrame(w io.Writer, payload []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReader(r)}
}

// ReadFrame reads the next message body. Header lines may end in \r\n or
// \n; headers other than Content-Length are ignored.
func (fr *frameReader) ReadFrame() ([]byte, error) {
	length := -1
	sawHeader := false
	for {
		line, err := fr.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" && !sawHeader {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read frame header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !sawHeader {
				// Stray blank line between frames.
				continue
			}
			break
		}
		sawHeader = true
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.ToLower(strings.TrimSpace(name)) != contentLengthHeader {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", strings.TrimSpace(value))
		}
		length = n
	}
	if length < 0 {
		return nil, errMissingContentLength
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return body, nil
}
