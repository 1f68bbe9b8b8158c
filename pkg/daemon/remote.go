package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/pkg/watch"
)

// baseURL is the dummy host used for unix socket HTTP requests.
const baseURL = "http://unix"

// RemoteClient implements Client over the daemon's HTTP API.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
}

// NewRemoteClient creates a client for the daemon listening on socketPath.
func NewRemoteClient(socketPath string) *RemoteClient {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &RemoteClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		socketPath: socketPath,
	}
}

// SocketPath returns the socket the client talks to.
func (c *RemoteClient) SocketPath() string { return c.socketPath }

// do sends a request and decodes a JSON response into out.
func (c *RemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.DaemonNotRunning(c.socketPath).WithDetail("cause", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New(errors.ErrCodeInvalidInput, strings.TrimSpace(string(msg))).
			WithDetail("status", resp.StatusCode).
			WithDetail("path", path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// State returns the daemon state.
func (c *RemoteClient) State(ctx context.Context) (*StateResponse, error) {
	var state StateResponse
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ChangeDirectory asks the daemon to monitor path.
func (c *RemoteClient) ChangeDirectory(ctx context.Context, path string) (*DirectoryResponse, error) {
	var resp DirectoryResponse
	if err := c.do(ctx, http.MethodPost, "/api/directory", DirectoryRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangeDirectoryUp asks the daemon to monitor the parent directory.
func (c *RemoteClient) ChangeDirectoryUp(ctx context.Context) (*DirectoryResponse, error) {
	var resp DirectoryResponse
	if err := c.do(ctx, http.MethodPost, "/api/directory/up", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Config returns the running settings.
func (c *RemoteClient) Config(ctx context.Context) (*ConfigResponse, error) {
	var resp ConfigResponse
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateConfig applies update to the running daemon.
func (c *RemoteClient) UpdateConfig(ctx context.Context, update ConfigUpdate) (*ConfigResponse, error) {
	var resp ConfigResponse
	if err := c.do(ctx, http.MethodPost, "/api/config", update, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartWatcher starts the named watcher loop.
func (c *RemoteClient) StartWatcher(ctx context.Context, name string) (*Watchers, error) {
	return c.watcherCommand(ctx, name, "start")
}

// StopWatcher stops the named watcher loop.
func (c *RemoteClient) StopWatcher(ctx context.Context, name string) (*Watchers, error) {
	return c.watcherCommand(ctx, name, "stop")
}

func (c *RemoteClient) watcherCommand(ctx context.Context, name, action string) (*Watchers, error) {
	var resp Watchers
	if err := c.do(ctx, http.MethodPost, "/api/watchers/"+name+"/"+action, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Stream subscribes to notifications via Server-Sent Events.
func (c *RemoteClient) Stream(ctx context.Context) (<-chan watch.Notification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Streaming needs a client without the request timeout.
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{Transport: streamTransport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.DaemonNotRunning(c.socketPath).WithDetail("cause", err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan watch.Notification, 16)
	go func() {
		defer close(ch)
		defer streamTransport.CloseIdleConnections()
		defer resp.Body.Close()
		readEvents(ctx, resp.Body, ch)
	}()
	return ch, nil
}

// readEvents parses an event stream, forwarding the data of each event.
func readEvents(ctx context.Context, r io.Reader, ch chan<- watch.Notification) {
	scanner := bufio.NewScanner(r)
	// Directory snapshots of large folders exceed the default 64KB line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var n watch.Notification
			err := json.Unmarshal([]byte(data.String()), &n)
			data.Reset()
			if err != nil {
				continue
			}
			select {
			case ch <- n:
			case <-ctx.Done():
				return
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

// StreamWebsocket subscribes to notifications over the websocket endpoint.
func (c *RemoteClient) StreamWebsocket(ctx context.Context) (<-chan watch.Notification, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
		HandshakeTimeout: 5 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, "ws://unix/api/ws", nil)
	if err != nil {
		return nil, errors.DaemonNotRunning(c.socketPath).WithDetail("cause", err.Error())
	}

	ch := make(chan watch.Notification, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(ch)
		defer close(done)
		defer conn.Close()
		for {
			var n watch.Notification
			if err := conn.ReadJSON(&n); err != nil {
				return
			}
			select {
			case ch <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ Client = (*RemoteClient)(nil)
