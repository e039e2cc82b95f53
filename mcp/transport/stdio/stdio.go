// Package stdio implements the client side of the MCP stdio transport:
// the provider runs as a local subprocess and exchanges newline-delimited
// JSON-RPC messages over its standard streams.
package stdio

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/biomcp/mcp/transport"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/biomcp/mcp/transport", "stdio")

// maxLineSize bounds a single JSON-RPC message read from the provider.
const maxLineSize = 16 * 1024 * 1024

// Transport spawns a provider subprocess and speaks JSON-RPC over its
// stdin/stdout. Each line is one message.
type Transport struct {
	command string
	args    []string
	env     []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()

	mu        sync.RWMutex
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a stdio transport that will spawn the given command.
func New(command string, args ...string) *Transport {
	return &Transport{
		command: command,
		args:    args,
		done:    make(chan struct{}),
	}
}

// WithEnv appends environment variables ("KEY=VALUE") for the subprocess.
func (t *Transport) WithEnv(env ...string) *Transport {
	t.env = append(t.env, env...)
	return t
}

// Start spawns the subprocess and begins reading its stdout.
// The process outlives ctx; it is terminated by Close.
func (t *Transport) Start(ctx context.Context) error {
	cmd := exec.Command(t.command, t.args...)
	if len(t.env) > 0 {
		cmd.Env = append(cmd.Environ(), t.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "failed to open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to open stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "failed to open stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to spawn provider process: %s", t.command)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout

	go t.readLoop(stdout)
	go t.drainStderr(stderr)

	return nil
}

// Send writes one message as a single line to the provider's stdin.
func (t *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	data, err := message.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.stdin == nil {
		return errors.New("transport not started")
	}
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write to provider stdin")
	}
	return nil
}

// Close terminates the subprocess. The provider is given a short grace
// period after its stdin closes before being killed.
func (t *Transport) Close() error {
	var retErr error
	t.closeOnce.Do(func() {
		close(t.done)

		if t.stdin != nil {
			_ = t.stdin.Close()
		}
		if t.cmd != nil && t.cmd.Process != nil {
			waited := make(chan error, 1)
			go func() { waited <- t.cmd.Wait() }()
			select {
			case <-waited:
			case <-time.After(3 * time.Second):
				_ = t.cmd.Process.Kill()
				<-waited
			}
		}

		t.mu.RLock()
		handler := t.closeHandler
		t.mu.RUnlock()
		if handler != nil {
			handler()
		}
	})
	return retErr
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

func (t *Transport) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := transport.ParseJsonRpcMessage(line)
		if err != nil {
			t.reportError(err)
			continue
		}

		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()
		if handler != nil {
			handler(context.Background(), msg)
		}
	}

	select {
	case <-t.done:
		// closed deliberately
	default:
		if err := scanner.Err(); err != nil {
			t.reportError(errors.Wrap(err, "provider stdout read failed"))
		}
		t.mu.RLock()
		handler := t.closeHandler
		t.mu.RUnlock()
		if handler != nil {
			handler()
		}
	}
}

func (t *Transport) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		logger.KV(xlog.DEBUG,
			"provider", t.command,
			"stderr", scanner.Text(),
		)
	}
}

func (t *Transport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	} else {
		logger.KV(xlog.WARNING, "provider", t.command, "err", err.Error())
	}
}

var _ transport.Transport = (*Transport)(nil)
