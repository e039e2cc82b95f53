// Package sse implements the client side of the MCP SSE transport: a
// persistent text/event-stream connection delivers server messages, and the
// client posts its own messages to an endpoint the server announces in the
// first "endpoint" event.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/mcp/transport"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp/mcp/transport", "sse")

const endpointWait = 30 * time.Second

// Transport is a streamed HTTP client transport for one MCP provider.
type Transport struct {
	url        string
	httpClient *http.Client

	endpoint string
	ready    chan struct{}
	cancel   context.CancelFunc

	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()

	mu        sync.RWMutex
	closeOnce sync.Once
	done      chan struct{}
}

// New creates an SSE transport connecting to the given stream URL.
func New(streamURL string) *Transport {
	return &Transport{
		url:        streamURL,
		httpClient: http.DefaultClient,
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// WithHTTPClient overrides the HTTP client used for the stream and posts.
func (t *Transport) WithHTTPClient(client *http.Client) *Transport {
	t.httpClient = client
	return t
}

// Start opens the event stream and blocks until the server announces the
// message endpoint, or ctx expires.
func (t *Transport) Start(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.url, nil)
	if err != nil {
		cancel()
		return errors.Wrap(err, "failed to create stream request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		return errors.Wrapf(err, "failed to connect to event stream: %s", t.url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return errors.Errorf("event stream returned status %d: %s", resp.StatusCode, t.url)
	}

	go t.readLoop(resp.Body)

	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		_ = t.Close()
		return errors.Wrap(ctx.Err(), "timed out waiting for endpoint event")
	case <-time.After(endpointWait):
		_ = t.Close()
		return errors.Errorf("no endpoint event received within %s", endpointWait)
	}
}

// Send posts one message to the announced endpoint.
func (t *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	t.mu.RLock()
	endpoint := t.endpoint
	t.mu.RUnlock()
	if endpoint == "" {
		return errors.New("transport not started")
	}

	data, err := message.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to create post request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post message")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("provider rejected message: status %d", resp.StatusCode)
	}
	return nil
}

// Close tears down the stream connection.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		if t.cancel != nil {
			t.cancel()
		}

		t.mu.RLock()
		handler := t.closeHandler
		t.mu.RUnlock()
		if handler != nil {
			handler()
		}
	})
	return nil
}

// SetMessageHandler implements transport.Transport.
func (t *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// SetErrorHandler implements transport.Transport.
func (t *Transport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// SetCloseHandler implements transport.Transport.
func (t *Transport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *Transport) readLoop(body io.ReadCloser) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			t.dispatchEvent(event, data)
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// comment, keep-alive
		}
	}

	select {
	case <-t.done:
	default:
		if err := scanner.Err(); err != nil {
			t.reportError(errors.Wrap(err, "event stream read failed"))
		}
		t.mu.RLock()
		handler := t.closeHandler
		t.mu.RUnlock()
		if handler != nil {
			handler()
		}
	}
}

func (t *Transport) dispatchEvent(event, data string) {
	if data == "" {
		return
	}
	switch event {
	case "endpoint":
		endpoint, err := t.resolveEndpoint(data)
		if err != nil {
			t.reportError(err)
			return
		}
		t.mu.Lock()
		first := t.endpoint == ""
		t.endpoint = endpoint
		t.mu.Unlock()
		if first {
			close(t.ready)
		}
	case "message", "":
		msg, err := transport.ParseJsonRpcMessage([]byte(data))
		if err != nil {
			t.reportError(err)
			return
		}
		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()
		if handler != nil {
			handler(context.Background(), msg)
		}
	default:
		logger.KV(xlog.DEBUG, "event", event, "status", "ignored")
	}
}

// resolveEndpoint resolves a possibly relative endpoint against the stream URL.
func (t *Transport) resolveEndpoint(raw string) (string, error) {
	base, err := url.Parse(t.url)
	if err != nil {
		return "", errors.Wrap(err, "invalid stream url")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "invalid endpoint url")
	}
	return base.ResolveReference(ref).String(), nil
}

func (t *Transport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	} else {
		logger.KV(xlog.WARNING, "url", t.url, "err", err.Error())
	}
}

var _ transport.Transport = (*Transport)(nil)
