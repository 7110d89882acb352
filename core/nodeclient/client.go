package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kenjp1223/dual-camera/core/capture"
	"github.com/kenjp1223/dual-camera/core/nodes"
)

// Client sends capture commands to a node's control endpoint.
type Client interface {
	Prepare(ctx context.Context, node *nodes.Node, params capture.Params) error
	Start(ctx context.Context, node *nodes.Node, params capture.Params) (*StartResponse, error)
	Stop(ctx context.Context, node *nodes.Node) (*capture.Status, error)
	Status(ctx context.Context, node *nodes.Node) (*capture.Status, error)
}

// httpNodeClient implements Client over plain HTTP. Transport security is
// assumed absent or external.
type httpNodeClient struct {
	httpClient *http.Client
}

// NewHTTPClient creates a node client with the given per-request timeout.
func NewHTTPClient(timeout time.Duration) Client {
	return &httpNodeClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Prepare asks the node to validate parameters without starting capture.
func (c *httpNodeClient) Prepare(ctx context.Context, node *nodes.Node, params capture.Params) error {
	return c.post(ctx, node, "/api/capture/prepare", NewCaptureRequest(params), nil)
}

// Start issues the capture start command.
func (c *httpNodeClient) Start(ctx context.Context, node *nodes.Node, params capture.Params) (*StartResponse, error) {
	var resp StartResponse
	if err := c.post(ctx, node, "/api/capture/start", NewCaptureRequest(params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the node to finalize its active capture and returns the terminal
// status.
func (c *httpNodeClient) Stop(ctx context.Context, node *nodes.Node) (*capture.Status, error) {
	var status capture.Status
	if err := c.post(ctx, node, "/api/capture/stop", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Status fetches the node's last-known capture state.
func (c *httpNodeClient) Status(ctx context.Context, node *nodes.Node) (*capture.Status, error) {
	url := node.BaseURL + "/api/capture/status"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Node: node.Name, Unreachable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(node, resp)
	}

	var status capture.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &status, nil
}

// post sends a JSON command and decodes the response into out when non-nil.
func (c *httpNodeClient) post(ctx context.Context, node *nodes.Node, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", node.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Node: node.Name, Unreachable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(node, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func decodeError(node *nodes.Node, resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	return &RequestError{
		Node:       node.Name,
		StatusCode: resp.StatusCode,
		Reason:     body.Reason,
		Err:        fmt.Errorf("%s", body.Error),
	}
}
