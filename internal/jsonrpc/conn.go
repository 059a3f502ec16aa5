package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

// Handler receives incoming requests and notifications. Requests must be
// answered with Reply or ReplyError. A returned error stops Run.
type Handler func(ctx context.Context, msg *Message) error

// Conn is a bidirectional JSON-RPC endpoint.
type Conn struct {
	stream Stream
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[string]chan *Message
	done    chan struct{}
	err     error
}

// NewConn wraps stream. Call Run to start reading.
func NewConn(stream Stream) *Conn {
	return &Conn{
		stream:  stream,
		pending: make(map[string]chan *Message),
		done:    make(chan struct{}),
	}
}

// Run reads messages until the stream ends, ctx is cancelled or handler
// fails. Responses complete pending calls; everything else goes to handler.
// A clean end of stream returns nil.
func (c *Conn) Run(ctx context.Context, handler Handler) (err error) {
	defer func() { c.shutdown(err) }()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payload, err := c.stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.IsResponse() {
			c.complete(&msg)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := handler(ctx, &msg); err != nil {
			return err
		}
	}
}

func (c *Conn) complete(msg *Message) {
	key := idKey(msg.ID)
	c.mu.Lock()
	ch, ok := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *Conn) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.err = err
	close(c.done)
	for key, ch := range c.pending {
		close(ch)
		delete(c.pending, key)
	}
}

// Done is closed once Run returns.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Call sends a request and decodes the response into result, which may be
// nil. Cancelling ctx sends $/cancelRequest and returns ctx.Err().
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	rawID := json.RawMessage(strconv.FormatInt(id, 10))
	key := idKey(rawID)
	ch := make(chan *Message, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return ErrClosed
	default:
	}
	c.pending[key] = ch
	c.mu.Unlock()

	if err := c.send(&Message{ID: rawID, Method: method}, params); err != nil {
		c.forget(key)
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if msg.Error != nil {
			return msg.Error
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.forget(key)
		_ = c.Notify("$/cancelRequest", map[string]any{"id": id})
		return ctx.Err()
	}
}

func (c *Conn) forget(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// Notify sends a notification.
func (c *Conn) Notify(method string, params any) error {
	return c.send(&Message{Method: method}, params)
}

// Reply answers a request with result. A nil result is sent as JSON null.
func (c *Conn) Reply(id json.RawMessage, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return c.ReplyError(id, NewError(CodeInternalError, "encode result: %v", err))
	}
	return c.write(&Message{JSONRPC: "2.0", ID: id, Result: data})
}

// ReplyError answers a request with an error.
func (c *Conn) ReplyError(id json.RawMessage, rpcErr *Error) error {
	return c.write(&Message{JSONRPC: "2.0", ID: id, Error: rpcErr})
}

// Forward relays msg verbatim, keeping its id.
func (c *Conn) Forward(msg *Message) error {
	out := *msg
	out.JSONRPC = "2.0"
	return c.write(&out)
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.stream.Close()
}

func (c *Conn) send(msg *Message, params any) error {
	msg.JSONRPC = "2.0"
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		msg.Params = data
	}
	return c.write(msg)
}

func (c *Conn) write(msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.stream.Write(payload)
}
