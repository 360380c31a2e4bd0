// Package api is the request/response side of the approval server.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

const maxBodyBytes = 16 << 20

// TransportError is a command or fetch that failed at the network or HTTP
// layer. StatusCode is zero for network errors.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to the approval server's HTTP endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchToolCalls retrieves the pending queue and log (GET /api/tool_calls).
func (c *Client) FetchToolCalls(ctx context.Context) (protocol.InitialState, error) {
	body, err := c.get(ctx, "fetch tool calls", "/api/tool_calls")
	if err != nil {
		return protocol.InitialState{}, err
	}
	st, err := protocol.DecodeSnapshot(body)
	if err != nil {
		return protocol.InitialState{}, fmt.Errorf("fetch tool calls: %w", err)
	}
	return st, nil
}

// FetchChatHistory retrieves earlier chat messages (GET /api/chat-history).
func (c *Client) FetchChatHistory(ctx context.Context) ([]models.ChatMessage, error) {
	body, err := c.get(ctx, "fetch chat history", "/api/chat-history")
	if err != nil {
		return nil, err
	}
	msgs, err := protocol.DecodeChatHistory(body)
	if err != nil {
		return nil, fmt.Errorf("fetch chat history: %w", err)
	}
	return msgs, nil
}

// Do issues one request/response command and waits for its response. The
// response body is not interpreted; state changes arrive on the push channel.
func (c *Client) Do(ctx context.Context, cmd protocol.Command) error {
	req, err := protocol.EncodeRequest(cmd)
	if err != nil {
		return err
	}
	op := protocol.Name(cmd)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	_, err = c.send(httpReq, op)
	return err
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, op)
}

func (c *Client) send(req *http.Request, op string) ([]byte, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("request rejected",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}
