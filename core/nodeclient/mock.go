package nodeclient

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kenjp1223/dual-camera/core/capture"
	"github.com/kenjp1223/dual-camera/core/nodes"
)

// MockClient is a scriptable Client for coordinator tests. Per-node errors
// are injected by node name; every command is counted so tests can assert
// the no-retry rule.
type MockClient struct {
	mu sync.Mutex

	PrepareErrs map[string]error
	StartErrs   map[string]error
	StopErrs    map[string]error
	StatusErrs  map[string]error

	// Statuses is what Status returns per node; Stop returns the same entry.
	Statuses map[string]*capture.Status

	PrepareCalls map[string]int
	StartCalls   map[string]int
	StopCalls    map[string]int
	StatusCalls  map[string]int
}

// NewMockClient creates a mock where every command succeeds and every node
// reports an idle state until scripted otherwise.
func NewMockClient() *MockClient {
	return &MockClient{
		PrepareErrs:  make(map[string]error),
		StartErrs:    make(map[string]error),
		StopErrs:     make(map[string]error),
		StatusErrs:   make(map[string]error),
		Statuses:     make(map[string]*capture.Status),
		PrepareCalls: make(map[string]int),
		StartCalls:   make(map[string]int),
		StopCalls:    make(map[string]int),
		StatusCalls:  make(map[string]int),
	}
}

// SetStatus scripts the status a node reports.
func (m *MockClient) SetStatus(node string, status *capture.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses[node] = status
}

func (m *MockClient) Prepare(ctx context.Context, node *nodes.Node, params capture.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrepareCalls[node.Name]++
	return m.PrepareErrs[node.Name]
}

func (m *MockClient) Start(ctx context.Context, node *nodes.Node, params capture.Params) (*StartResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls[node.Name]++
	if err := m.StartErrs[node.Name]; err != nil {
		return nil, err
	}
	if _, ok := m.Statuses[node.Name]; !ok {
		m.Statuses[node.Name] = &capture.Status{State: capture.StateRecording}
	}
	return &StartResponse{JobID: uuid.NewString()}, nil
}

func (m *MockClient) Stop(ctx context.Context, node *nodes.Node) (*capture.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls[node.Name]++
	if err := m.StopErrs[node.Name]; err != nil {
		return nil, err
	}
	if status, ok := m.Statuses[node.Name]; ok {
		return status, nil
	}
	return &capture.Status{State: capture.StateDone}, nil
}

func (m *MockClient) Status(ctx context.Context, node *nodes.Node) (*capture.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls[node.Name]++
	if err := m.StatusErrs[node.Name]; err != nil {
		return nil, err
	}
	if status, ok := m.Statuses[node.Name]; ok {
		return status, nil
	}
	return &capture.Status{State: capture.StateIdle}, nil
}
