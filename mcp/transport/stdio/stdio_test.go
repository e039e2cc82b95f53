package stdio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/biomcp/mcp/transport"
	"github.com/effective-security/biomcp/mcp/transport/stdio"
)

// echoScript reads request lines and answers each with a canned response,
// standing in for a provider binary.
const echoScript = `
while read line; do
  echo '{"jsonrpc":"2.0","id":1,"result":{"ok":true}}'
done
`

func TestSendBeforeStart(t *testing.T) {
	t.Parallel()

	tr := stdio.New("sh", "-c", echoScript)
	err := tr.Send(context.Background(), transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      1,
		Method:  "ping",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport not started")
}

func TestStartFailsForMissingCommand(t *testing.T) {
	t.Parallel()

	tr := stdio.New("/nonexistent/provider-binary")
	err := tr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to spawn provider process")
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	tr := stdio.New("sh", "-c", echoScript)

	received := make(chan *transport.BaseJsonRpcMessage, 1)
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		received <- msg
	})
	tr.SetErrorHandler(func(err error) {
		t.Errorf("unexpected transport error: %v", err)
	})

	ctx := context.Background()
	require.NoError(t, tr.Start(ctx))
	defer tr.Close()

	err := tr.Send(ctx, transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      1,
		Method:  "tools/list",
	}))
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, transport.BaseMessageTypeJSONRPCResponseType, msg.Type)
		assert.Equal(t, transport.RequestId(1), msg.JsonRpcResponse.Id)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for provider response")
	}
}

func TestCloseSuppressesCloseHandler(t *testing.T) {
	t.Parallel()

	tr := stdio.New("sh", "-c", echoScript)

	closed := make(chan struct{}, 1)
	tr.SetCloseHandler(func() {
		closed <- struct{}{}
	})

	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Close())

	// The deliberate close invokes the handler exactly once.
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close handler not invoked")
	}
	select {
	case <-closed:
		t.Fatal("close handler invoked twice")
	case <-time.After(100 * time.Millisecond):
	}

	// A second close is a no-op.
	require.NoError(t, tr.Close())
}

func TestProcessExitInvokesCloseHandler(t *testing.T) {
	t.Parallel()

	// The provider exits on its own after one response.
	tr := stdio.New("sh", "-c", `echo '{"jsonrpc":"2.0","id":1,"result":{}}'`)

	closed := make(chan struct{}, 1)
	tr.SetCloseHandler(func() {
		closed <- struct{}{}
	})
	received := make(chan *transport.BaseJsonRpcMessage, 1)
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		received <- msg
	})

	require.NoError(t, tr.Start(context.Background()))
	defer tr.Close()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for provider output")
	}
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close handler not invoked after provider exit")
	}
}

func TestWithEnv(t *testing.T) {
	t.Parallel()

	tr := stdio.New("sh", "-c",
		`printf '{"jsonrpc":"2.0","id":1,"result":{"value":"%s"}}\n' "$PROVIDER_TOKEN"`).
		WithEnv("PROVIDER_TOKEN=abcd1234")

	received := make(chan *transport.BaseJsonRpcMessage, 1)
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		received <- msg
	})

	require.NoError(t, tr.Start(context.Background()))
	defer tr.Close()

	select {
	case msg := <-received:
		assert.Contains(t, string(msg.JsonRpcResponse.Result), "abcd1234")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for provider output")
	}
}
