package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kenjp1223/dual-camera/core/capture"
	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/nodeclient"
	"github.com/kenjp1223/dual-camera/core/nodes"
)

// CoordinatorSettings bounds the coordinator's node commands. Prepare and
// Start use short timeouts (command issuance only, never the recording
// duration); Poll deliberately has none.
type CoordinatorSettings struct {
	PrepareTimeout time.Duration
	CommandTimeout time.Duration
}

// DefaultCoordinatorSettings returns command timeouts suited to a LAN rig.
func DefaultCoordinatorSettings() CoordinatorSettings {
	return CoordinatorSettings{
		PrepareTimeout: 5 * time.Second,
		CommandTimeout: 5 * time.Second,
	}
}

// Coordinator tracks recording sessions across a set of nodes. The node
// directory is injected read-only at construction, so independent
// coordinators never interfere. The session map is the only shared
// structure and sits behind one mutex; per-node entries are written only by
// that node's dispatch goroutine.
type Coordinator struct {
	logger    logging.Logger
	directory *nodes.Directory
	client    nodeclient.Client
	repo      SessionRepository
	settings  CoordinatorSettings

	mu       sync.Mutex
	sessions map[string]*recordingSession
}

// NewCoordinator creates a coordinator with default settings. The
// repository may be nil when no archive is wanted.
func NewCoordinator(logger logging.Logger, directory *nodes.Directory, client nodeclient.Client, repo SessionRepository) *Coordinator {
	return NewCoordinatorWithSettings(logger, directory, client, repo, DefaultCoordinatorSettings())
}

// NewCoordinatorWithSettings creates a coordinator with custom timeouts.
func NewCoordinatorWithSettings(logger logging.Logger, directory *nodes.Directory, client nodeclient.Client, repo SessionRepository, settings CoordinatorSettings) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger
	}
	if settings.PrepareTimeout <= 0 {
		settings.PrepareTimeout = 5 * time.Second
	}
	if settings.CommandTimeout <= 0 {
		settings.CommandTimeout = 5 * time.Second
	}

	return &Coordinator{
		logger:    logger,
		directory: directory,
		client:    client,
		repo:      repo,
		settings:  settings,
		sessions:  make(map[string]*recordingSession),
	}
}

// RequestSession runs the two-phase start: Prepare fans out to every node
// and, once the participating set is settled, Commit dispatches Start to
// all of them concurrently so wall-clock skew is bounded by network latency
// variance rather than serialized dispatch. The session id is returned even
// when the session ends up Aborted; Poll carries the per-node reasons.
func (c *Coordinator) RequestSession(ctx context.Context, nodeNames []string, params capture.Params, policy Policy) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if len(nodeNames) == 0 {
		return "", fmt.Errorf("session needs at least one node")
	}

	members := make([]*nodes.Node, 0, len(nodeNames))
	for _, name := range nodeNames {
		node := c.directory.Get(name)
		if node == nil {
			return "", fmt.Errorf("unknown node: %s", name)
		}
		members = append(members, node)
	}

	sess := &recordingSession{
		id:        uuid.NewString(),
		params:    params,
		policy:    policy,
		createdAt: time.Now(),
		nodes:     make(map[string]*NodeStatus, len(members)),
	}
	for _, node := range members {
		sess.nodes[node.Name] = &NodeStatus{
			Node:          node.Name,
			Participating: true,
			State:         capture.StateIdle,
		}
	}

	c.mu.Lock()
	c.sessions[sess.id] = sess
	c.mu.Unlock()

	c.logger.Info("session requested", "sessionID", sess.id,
		"nodes", len(members), "bestEffort", policy.BestEffort)

	participants := c.prepare(ctx, sess, members)
	if len(participants) == 0 {
		c.mu.Lock()
		sess.aborted = true
		c.mu.Unlock()
		c.logger.Warn("session aborted, no nodes passed prepare", "sessionID", sess.id)
		return sess.id, nil
	}

	c.commit(ctx, sess, participants)
	return sess.id, nil
}

// prepare runs the first phase and returns the nodes to commit. In strict
// mode any failure empties the participant set so no node records anything;
// in best-effort mode failing nodes are excluded and the rest proceed.
func (c *Coordinator) prepare(ctx context.Context, sess *recordingSession, members []*nodes.Node) []*nodes.Node {
	type prepareResult struct {
		node *nodes.Node
		err  error
	}

	results := make(chan prepareResult, len(members))
	for _, node := range members {
		go func(node *nodes.Node) {
			prepCtx, cancel := context.WithTimeout(ctx, c.settings.PrepareTimeout)
			defer cancel()
			results <- prepareResult{node: node, err: c.client.Prepare(prepCtx, node, sess.params)}
		}(node)
	}

	var ready []*nodes.Node
	var failed []prepareResult
	for range members {
		res := <-results
		if res.err != nil {
			failed = append(failed, res)
		} else {
			ready = append(ready, res.node)
		}
	}

	if len(failed) == 0 {
		return ready
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, res := range failed {
		ns := sess.nodes[res.node.Name]
		ns.Participating = false
		ns.State = capture.StateFailed
		ns.Reason = failureReason(res.err)
		c.logger.Warn("node failed prepare", "sessionID", sess.id,
			"node", res.node.Name, "reason", ns.Reason, "error", res.err)
	}

	if !sess.policy.BestEffort {
		// Strict mode: the whole session aborts and nothing starts.
		for _, node := range ready {
			sess.nodes[node.Name].Participating = false
		}
		sess.aborted = true
		return nil
	}

	return ready
}

// commit dispatches Start to every participant concurrently. A failed or
// unreachable Start is never retried: a duplicate start could desynchronize
// a capture that actually began.
func (c *Coordinator) commit(ctx context.Context, sess *recordingSession, participants []*nodes.Node) {
	var wg sync.WaitGroup
	for _, node := range participants {
		wg.Add(1)
		go func(node *nodes.Node) {
			defer wg.Done()

			cmdCtx, cancel := context.WithTimeout(ctx, c.settings.CommandTimeout)
			defer cancel()

			resp, err := c.client.Start(cmdCtx, node, sess.params)

			c.mu.Lock()
			defer c.mu.Unlock()
			ns := sess.nodes[node.Name]
			if err != nil {
				ns.State = capture.StateFailed
				ns.Reason = failureReason(err)
				c.logger.Warn("node failed start", "sessionID", sess.id,
					"node", node.Name, "reason", ns.Reason, "error", err)
				return
			}
			ns.State = capture.StateRecording
			c.logger.Info("node recording", "sessionID", sess.id,
				"node", node.Name, "jobID", resp.JobID)
		}(node)
	}
	wg.Wait()

	c.mu.Lock()
	sess.committed = true
	c.mu.Unlock()
}

// Poll refreshes the session's non-terminal node states and returns the
// aggregated status. Unreachable nodes keep their last-known state; Poll
// never fails because of one silent node.
func (c *Coordinator) Poll(ctx context.Context, sessionID string) (*Status, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("unknown session: %s", sessionID)
	}

	var pending []string
	if sess.committed {
		for name, ns := range sess.nodes {
			if ns.Participating && !ns.State.Terminal() {
				pending = append(pending, name)
			}
		}
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, name := range pending {
		node := c.directory.Get(name)
		if node == nil {
			continue
		}
		wg.Add(1)
		go func(node *nodes.Node) {
			defer wg.Done()

			status, err := c.client.Status(ctx, node)
			if err != nil {
				// Keep the last-known state; the node may come back.
				c.logger.Debug("status poll failed", "sessionID", sessionID,
					"node", node.Name, "error", err)
				return
			}

			c.mu.Lock()
			defer c.mu.Unlock()
			ns := sess.nodes[node.Name]
			c.applyNodeStatus(ns, status)
		}(node)
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := sess.snapshot()
	c.archiveLocked(ctx, sess, snapshot)
	return snapshot, nil
}

// Abort propagates a stop to every non-terminal participant. Nodes still
// preparing or recording are instructed to stop; none is silently left
// running. Partial output stays on disk for diagnosis.
func (c *Coordinator) Abort(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	sess.aborted = true

	var pending []string
	for name, ns := range sess.nodes {
		if ns.Participating && !ns.State.Terminal() {
			pending = append(pending, name)
		}
	}
	c.mu.Unlock()

	c.logger.Info("aborting session", "sessionID", sessionID, "activeNodes", len(pending))

	var wg sync.WaitGroup
	for _, name := range pending {
		node := c.directory.Get(name)
		if node == nil {
			continue
		}
		wg.Add(1)
		go func(node *nodes.Node) {
			defer wg.Done()

			cmdCtx, cancel := context.WithTimeout(ctx, c.settings.CommandTimeout)
			defer cancel()

			status, err := c.client.Stop(cmdCtx, node)

			c.mu.Lock()
			defer c.mu.Unlock()
			ns := sess.nodes[node.Name]
			if err != nil {
				ns.State = capture.StateFailed
				ns.Reason = failureReason(err)
				c.logger.Warn("node failed to stop", "sessionID", sessionID,
					"node", node.Name, "reason", ns.Reason, "error", err)
				return
			}
			c.applyNodeStatus(ns, status)
			if !ns.State.Terminal() {
				ns.State = capture.StateFailed
				ns.Reason = string(capture.ReasonProcessExited)
			}
		}(node)
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := sess.snapshot()
	c.archiveLocked(ctx, sess, snapshot)
	return nil
}

// applyNodeStatus folds a node's reported status into the session entry.
// Caller holds the coordinator mutex.
func (c *Coordinator) applyNodeStatus(ns *NodeStatus, status *capture.Status) {
	if status.State == capture.StateIdle {
		// The node knows nothing of an active job; nothing to fold in.
		return
	}
	ns.State = status.State
	ns.Reason = string(status.Reason)
	if status.Result != nil {
		result := *status.Result
		ns.Result = &result
	}
}

// archiveLocked persists a terminal session once. Caller holds the mutex.
func (c *Coordinator) archiveLocked(ctx context.Context, sess *recordingSession, snapshot *Status) {
	if c.repo == nil || sess.archived || !snapshot.Outcome.Terminal() {
		return
	}
	if err := c.repo.Save(ctx, snapshot); err != nil {
		c.logger.Error("failed to archive session", "sessionID", sess.id, "error", err)
		return
	}
	sess.archived = true
}

// failureReason maps a node command error to a machine-readable reason.
func failureReason(err error) string {
	if reason := nodeclient.ReasonOf(err); reason != "" {
		return reason
	}
	if reason := capture.ReasonOf(err); reason != "" {
		return string(reason)
	}
	return err.Error()
}
