package jsonrpc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Stream moves whole JSON payloads.
type Stream interface {
	Read() ([]byte, error)
	Write(payload []byte) error
	Close() error
}

// headerStream frames payloads with Content-Length headers, as LSP does on stdio.
type headerStream struct {
	in     *bufio.Reader
	out    *bufio.Writer
	closer io.Closer
	mu     sync.Mutex
}

// NewHeaderStream frames over r and w. closer may be nil.
func NewHeaderStream(r io.Reader, w io.Writer, closer io.Closer) Stream {
	return &headerStream{in: bufio.NewReader(r), out: bufio.NewWriter(w), closer: closer}
}

func (s *headerStream) Read() ([]byte, error) {
	return readMessage(s.in)
}

func (s *headerStream) Write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *headerStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func readMessage(r *bufio.Reader) ([]byte, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
			contentLength = length
		}
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeMessage(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// wsStream carries one message per websocket text frame.
type wsStream struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
	once sync.Once
}

// NewWebsocketStream wraps conn and keeps it alive with pings.
func NewWebsocketStream(conn *websocket.Conn) Stream {
	s := &wsStream{conn: conn, done: make(chan struct{})}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go s.ping()
	return s
}

func (s *wsStream) ping() {
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err == nil {
				err = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsStream) Read() ([]byte, error) {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (s *wsStream) Write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.conn.Close()
}
