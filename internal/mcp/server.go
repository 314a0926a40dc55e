package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/consts"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/tools"
)

const stderrTailBytes = 4096

// Server is one MCP server spoken to over stdio. Requests are serialized;
// a single goroutine reads frames from the server's stdout.
type Server struct {
	name      string
	timeout   time.Duration
	maxOutput int
	log       *logger.Logger

	cmd *exec.Cmd
	// wait reaps the process once stdout is drained; waitCh closes after.
	wait   func() error
	waitCh chan struct{}
	stdin  io.WriteCloser
	frames chan []byte
	done   chan struct{}
	stderr *tailBuffer

	reqMu  sync.Mutex
	nextID atomic.Int64

	tools []RemoteTool

	closeOnce sync.Once
	closeErr  error
}

// Option adjusts a Server.
type Option func(*Server)

// WithTimeout overrides the per-receive timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxOutput caps tool output; zero keeps the default.
func WithMaxOutput(n int) Option {
	return func(s *Server) { s.maxOutput = n }
}

func newServer(name string, stdin io.WriteCloser, stdout io.Reader, wait func() error, opts ...Option) *Server {
	s := &Server{
		name:    name,
		wait:    wait,
		waitCh:  make(chan struct{}),
		timeout: consts.MCPRequestTimeout,
		log:     logger.Global().WithPrefix("mcp:" + name),
		stdin:   stdin,
		frames:  make(chan []byte, 16),
		done:    make(chan struct{}),
		stderr:  &tailBuffer{max: stderrTailBytes},
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.readLoop(stdout)
	return s
}

// Start spawns the configured command, performs the initialize handshake
// and discovers the server's tools. On failure the process is stopped.
func Start(ctx context.Context, cfg config.MCPServerConfig, opts ...Option) (*Server, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("mcp server %s: empty command", cfg.Name)
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Env = mergeEnv(os.Environ(), cfg.Env)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	tail := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command[0], err)
	}

	s := newServer(cfg.Name, stdin, stdout, cmd.Wait, opts...)
	s.stderr = tail
	s.cmd = cmd

	if err := s.Initialize(ctx); err != nil {
		_ = s.Close()
		if tailText := s.StderrTail(); tailText != "" {
			return nil, fmt.Errorf("%w (stderr: %s)", err, tailText)
		}
		return nil, err
	}
	return s, nil
}

func (s *Server) Name() string { return s.name }

// Tools returns the tools discovered during Initialize.
func (s *Server) Tools() []RemoteTool {
	return append([]RemoteTool(nil), s.tools...)
}

// StderrTail returns the last bytes the server wrote to stderr.
func (s *Server) StderrTail() string {
	return s.stderr.String()
}

// Initialize runs the handshake and tools/list.
func (s *Server) Initialize(ctx context.Context) error {
	params := initializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: ClientName, Version: consts.Version},
	}
	if _, err := s.Request(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := s.Notify("notifications/initialized", nil); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	raw, err := s.Request(ctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	var list listToolsResult
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("decode tools/list: %w", err)
	}
	s.tools = s.tools[:0]
	for _, t := range list.Tools {
		if t.Name == "" {
			continue
		}
		s.tools = append(s.tools, RemoteTool{
			Name:        t.Name,
			Description: t.Description,
			Properties:  t.InputSchema.Properties,
			Required:    t.InputSchema.Required,
		})
	}
	s.log.Info("initialized with %d tools", len(s.tools))
	return nil
}

// readLoop forwards frames until stdout ends. After Close, frames are
// drained and dropped so the process can be reaped only once all of its
// output has been read.
func (s *Server) readLoop(stdout io.Reader) {
	defer func() {
		close(s.frames)
		if s.wait != nil {
			if err := s.wait(); err != nil {
				s.log.Debug("exited: %v", err)
			}
		}
		close(s.waitCh)
	}()
	fr := newFrameReader(stdout)
	closed := false
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !closed {
				s.log.Warn("read: %v", err)
			}
			return
		}
		if closed {
			continue
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			closed = true
		}
	}
}

func (s *Server) send(msg request) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Method, err)
	}
	if err := writeFrame(s.stdin, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrServerClosed, err)
	}
	return nil
}

// Notify sends a notification; no response is expected.
func (s *Server) Notify(method string, params any) error {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	return s.send(request{JSONRPC: "2.0", Method: method, Params: params})
}

// Request sends a request and waits for the response with the same id.
// Frames without an id or with another id are discarded. Each receive
// waits at most the server timeout.
func (s *Server) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	id := s.nextID.Add(1)
	if err := s.send(request{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	for {
		timer := time.NewTimer(s.timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			s.log.Warn("%s (id %d) timed out after %s", method, id, s.timeout)
			return nil, ErrTimeout
		case frame, ok := <-s.frames:
			timer.Stop()
			if !ok {
				return nil, ErrServerClosed
			}
			var resp response
			if err := json.Unmarshal(frame, &resp); err != nil {
				s.log.Debug("discarding undecodable frame: %v", err)
				continue
			}
			if !resp.matches(id) {
				s.log.Debug("discarding frame with id %s while waiting for %d", string(resp.ID), id)
				continue
			}
			if resp.Error != nil {
				return nil, resp.Error
			}
			return resp.Result, nil
		}
	}
}

// CallTool invokes a remote tool and always returns text for the model.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := s.Request(ctx, "tools/call", callToolParams{Name: name, Arguments: args})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return fmt.Sprintf("error: %d %s", rpcErr.Code, rpcErr.Message)
		}
		return fmt.Sprintf("error: %v", err)
	}

	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Sprintf("error: invalid tools/call result: %v", err)
	}
	out := renderContent(result.Content)
	if out == "" {
		out = "(no output)"
	}
	if result.IsError {
		out = "error: " + out
	}
	return tools.Truncate(out, s.maxOutput)
}

// Close stops the server: stdin is closed, then SIGTERM, then SIGKILL
// after a grace period. Safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.stdin.Close()
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = s.cmd.Process.Kill()
		}
		select {
		case <-s.waitCh:
		case <-time.After(consts.MCPShutdownGrace):
			s.log.Warn("did not exit after SIGTERM, killing")
			s.closeErr = s.cmd.Process.Kill()
			<-s.waitCh
		}
	})
	return s.closeErr
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := append([]string(nil), base...)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append([]byte(nil), t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
