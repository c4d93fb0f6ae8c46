package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// scgiTransport frames XML-RPC bodies for rTorrent's SCGI endpoint: the
// request is a netstring of NUL-separated headers followed by the body, the
// response is CGI-style headers, a blank line, and the XML payload.
type scgiTransport struct {
	network string
	addr    string
	timeout time.Duration
}

func (t *scgiTransport) roundTrip(ctx context.Context, body []byte) ([]byte, error) {
	dialer := net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, t.network, t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", t.network, t.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if t.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.timeout))
	}

	if _, err := conn.Write(encodeRequest(body)); err != nil {
		return nil, fmt.Errorf("write scgi request: %w", err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read scgi response: %w", err)
	}
	return splitResponse(raw)
}

func encodeRequest(body []byte) []byte {
	var headers bytes.Buffer
	headers.WriteString("CONTENT_LENGTH")
	headers.WriteByte(0)
	headers.WriteString(strconv.Itoa(len(body)))
	headers.WriteByte(0)
	headers.WriteString("SCGI")
	headers.WriteByte(0)
	headers.WriteString("1")
	headers.WriteByte(0)

	var req bytes.Buffer
	req.WriteString(strconv.Itoa(headers.Len()))
	req.WriteByte(':')
	req.Write(headers.Bytes())
	req.WriteByte(',')
	req.Write(body)
	return req.Bytes()
}

func splitResponse(raw []byte) ([]byte, error) {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[idx+4:], nil
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[idx+2:], nil
	}
	return nil, fmt.Errorf("malformed scgi response (%d bytes, no header terminator)", len(raw))
}
