package sse_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/biomcp/mcp/transport"
	"github.com/effective-security/biomcp/mcp/transport/sse"
)

// sseServer is an in-process streamed HTTP provider: the GET stream announces
// the POST endpoint, and each posted request is answered on the stream.
type sseServer struct {
	*httptest.Server
	received chan []byte
	events   chan string
}

func newSSEServer(t *testing.T) *sseServer {
	t.Helper()
	s := &sseServer{
		received: make(chan []byte, 8),
		events:   make(chan string, 8),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprintf(w, "event: endpoint\ndata: /message\n\n")
		flusher.Flush()

		for {
			select {
			case ev := <-s.events:
				_, _ = io.WriteString(w, ev)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		s.received <- body
		w.WriteHeader(http.StatusAccepted)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *sseServer) push(js string) {
	s.events <- "event: message\ndata: " + js + "\n\n"
}

func TestStartAndSend(t *testing.T) {
	t.Parallel()

	srv := newSSEServer(t)
	tr := sse.New(srv.URL + "/sse").WithHTTPClient(srv.Client())

	received := make(chan *transport.BaseJsonRpcMessage, 1)
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		received <- msg
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	defer tr.Close()

	// The endpoint event was resolved against the stream URL.
	err := tr.Send(ctx, transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      1,
		Method:  "tools/list",
	}))
	require.NoError(t, err)

	select {
	case body := <-srv.received:
		assert.Contains(t, string(body), `"tools/list"`)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for posted message")
	}

	srv.push(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`)
	select {
	case msg := <-received:
		assert.Equal(t, transport.BaseMessageTypeJSONRPCResponseType, msg.Type)
		assert.Equal(t, transport.RequestId(1), msg.JsonRpcResponse.Id)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream message")
	}
}

func TestSendBeforeStart(t *testing.T) {
	t.Parallel()

	tr := sse.New("http://127.0.0.1:0/sse")
	err := tr.Send(context.Background(), transport.NewBaseMessageNotification(&transport.BaseJSONRPCNotification{
		Jsonrpc: "2.0",
		Method:  "notifications/initialized",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport not started")
}

func TestStartRejectsNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	tr := sse.New(srv.URL + "/sse").WithHTTPClient(srv.Client())
	err := tr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event stream returned status 404")
}

func TestStartTimesOutWithoutEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	tr := sse.New(srv.URL + "/sse").WithHTTPClient(srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := tr.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out waiting for endpoint event")
}

func TestSendRejectedByProvider(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "event: endpoint\ndata: /message\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tr := sse.New(srv.URL + "/sse").WithHTTPClient(srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	defer tr.Close()

	err := tr.Send(ctx, transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      1,
		Method:  "tools/call",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider rejected message: status 400")
}
