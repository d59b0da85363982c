// Package upstream drives a single upstream MCP server through its whole
// lifecycle: spawning the child process, performing the initialize
// handshake, and correlating concurrent tool calls against the child's
// stdout stream.
package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lydakis/mcp-aggregating-gateway/internal/config"
	"github.com/lydakis/mcp-aggregating-gateway/internal/transport"
)

// CallTimeout bounds every individual tool call. A call that runs longer is
// abandoned client-side; the upstream may still complete it, but the
// response is discarded when it eventually arrives.
const CallTimeout = 30 * time.Second

// callTimeout is the active per-call deadline. It defaults to CallTimeout;
// tests shrink it to exercise timeout handling without waiting 30s.
var callTimeout = CallTimeout

// terminateGrace bounds how long Disconnect waits for a SIGTERM'd process
// group to exit before escalating to SIGKILL.
const terminateGrace = 3 * time.Second

const clientName = "mcp-aggregating-gateway"
const clientVersion = "0.1.0"

// Client owns one upstream child process end to end. It is safe for
// concurrent CallTool/ListTools calls once Ready.
type Client struct {
	name   string
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  *transport.FrameWriter
	stdinC func() error

	pending *pendingTable

	mu    sync.Mutex
	state State

	closeOnce sync.Once
	doneCh    chan struct{}
}

// Spawn launches the child process described by desc and drives it through
// the initialize/initialized handshake. It returns once the client is
// Ready, or with an error if the process could not be started or the
// handshake failed.
func Spawn(ctx context.Context, desc config.UpstreamDescriptor, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("upstream", desc.Name)

	cmd := exec.Command(desc.Command, desc.Args...)
	cmd.Env = mergeEnv(os.Environ(), desc.Env)
	setProcessGroup(cmd)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("upstream %s: opening stdin pipe: %w", desc.Name, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("upstream %s: opening stdout pipe: %w", desc.Name, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("upstream %s: opening stderr pipe: %w", desc.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("upstream %s: starting process: %w", desc.Name, err)
	}

	c := &Client{
		name:    desc.Name,
		logger:  logger,
		cmd:     cmd,
		stdin:   transport.NewFrameWriter(stdinPipe),
		stdinC:  stdinPipe.Close,
		pending: newPendingTable(),
		state:   Spawned,
		doneCh:  make(chan struct{}),
	}

	go c.drainStderr(stderrPipe)
	go c.readLoop(stdoutPipe)

	if err := c.handshake(ctx, desc); err != nil {
		c.Disconnect()
		return nil, err
	}

	return c, nil
}

func mergeEnv(base []string, overlay map[string]string) []string {
	env := make([]string, len(base), len(base)+len(overlay))
	copy(env, base)
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State reports the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) handshake(ctx context.Context, desc config.UpstreamDescriptor) error {
	initParams := mcp.InitializeParams{
		ProtocolVersion: transport.ProtocolVersion,
		ClientInfo: mcp.Implementation{
			Name:    clientName,
			Version: clientVersion,
		},
		Capabilities: mcp.ClientCapabilities{},
	}

	raw, err := c.call(ctx, "initialize", initParams)
	if err != nil {
		return fmt.Errorf("upstream %s: initialize: %w", desc.Name, err)
	}
	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("upstream %s: decoding initialize result: %w", desc.Name, err)
	}
	c.setState(Initialized)
	c.logger.Debug("initialized", "server_version", result.ServerInfo.Version)

	notif, err := transport.NewNotification("notifications/initialized", struct{}{})
	if err != nil {
		return fmt.Errorf("upstream %s: building initialized notification: %w", desc.Name, err)
	}
	if err := c.stdin.WriteFrame(notif); err != nil {
		return fmt.Errorf("upstream %s: sending initialized notification: %w", desc.Name, err)
	}

	if desc.WarmupDelay != "" {
		if d, err := time.ParseDuration(desc.WarmupDelay); err == nil && d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	c.setState(Ready)
	return nil
}

// call sends a request and blocks for its response or CallTimeout,
// whichever comes first. It is used both by the handshake (pre-Ready) and
// by CallTool/ListTools (Ready only).
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id, resultCh := c.pending.register()
	req, err := transport.NewRequest(id, method, params)
	if err != nil {
		c.pending.forget(id)
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}

	if err := c.stdin.WriteFrame(req); err != nil {
		c.pending.forget(id)
		return nil, &ErrProcessExited{Upstream: c.name, Cause: err}
	}

	timer := time.NewTimer(callTimeout)
	defer timer.Stop()

	select {
	case outcome := <-resultCh:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return outcome.result, nil
	case <-timer.C:
		c.pending.forget(id)
		return nil, &ErrCallTimeout{Upstream: c.name, Method: method}
	case <-ctx.Done():
		c.pending.forget(id)
		return nil, ctx.Err()
	case <-c.doneCh:
		return nil, &ErrProcessExited{Upstream: c.name}
	}
}

// CallTool invokes a tool by name on the upstream and returns its decoded
// result. It fails immediately, without writing anything, if the client is
// not Ready.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if state := c.State(); state != Ready {
		return nil, &ErrNotReady{Upstream: c.name, State: state}
	}

	raw, err := c.call(ctx, "tools/call", mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var result mcp.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("upstream %s: decoding tools/call result: %w", c.name, err)
	}
	return &result, nil
}

// ListTools returns the upstream's advertised tool set.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if state := c.State(); state != Ready {
		return nil, &ErrNotReady{Upstream: c.name, State: state}
	}

	raw, err := c.call(ctx, "tools/list", struct{}{})
	if err != nil {
		return nil, err
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("upstream %s: decoding tools/list result: %w", c.name, err)
	}
	return result.Tools, nil
}

// Disconnect terminates the child process and fails every pending call with
// a terminal error. It is idempotent and safe to call from a signal
// handler goroutine.
func (c *Client) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(Closed)
		_ = c.stdinC()
		if c.cmd.Process != nil {
			exited := make(chan struct{})
			go func() {
				c.cmd.Wait() //nolint:errcheck
				close(exited)
			}()
			go terminate(c.cmd, exited, terminateGrace)
		}
		c.pending.failAll(&ErrProcessExited{Upstream: c.name})
		close(c.doneCh)
	})
	return err
}

func (c *Client) readLoop(stdout io.ReadCloser) {
	reader := transport.NewFrameReader(stdout, c.logger)
	for {
		raw, err := reader.ReadFrame()
		if err != nil {
			c.logger.Debug("upstream stream closed", "error", err)
			c.handleProcessExit(err)
			return
		}
		c.dispatchFrame(raw)
	}
}

func (c *Client) handleProcessExit(cause error) {
	c.mu.Lock()
	already := c.state == Closed
	c.state = Closed
	c.mu.Unlock()
	if already {
		return
	}
	_ = c.stdinC()
	c.pending.failAll(&ErrProcessExited{Upstream: c.name, Cause: cause})
	c.closeOnce.Do(func() { close(c.doneCh) })
}

func (c *Client) dispatchFrame(raw json.RawMessage) {
	var probe struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		c.logger.Warn("malformed upstream frame", "error", err)
		return
	}
	if probe.Method != "" {
		// A request or notification initiated by the upstream (e.g.
		// notifications/tools/list_changed). The gateway has no
		// subscriber for these; log and move on.
		c.logger.Debug("ignoring upstream-initiated message", "method", probe.Method)
		return
	}
	if len(probe.ID) == 0 {
		c.logger.Warn("dropping upstream frame with no id and no method")
		return
	}

	var id int64
	if err := json.Unmarshal(probe.ID, &id); err != nil {
		c.logger.Warn("dropping upstream frame with non-numeric id", "id", string(probe.ID))
		return
	}

	var resp transport.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("malformed upstream response", "error", err)
		return
	}

	outcome := rpcOutcome{result: resp.Result}
	if resp.Error != nil {
		outcome.err = resp.Error
	}
	if !c.pending.deliver(id, outcome) {
		c.logger.Debug("dropping response for unknown or expired request", "id", id)
	}
}

func (c *Client) drainStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.logger.Debug("upstream stderr", "line", scanner.Text())
	}
}
