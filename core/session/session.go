package session

import (
	"sort"
	"time"

	"github.com/kenjp1223/dual-camera/core/capture"
)

// Outcome is the overall state of one recording session. It is computed
// from the per-node states, never stored redundantly.
type Outcome string

const (
	OutcomePending         Outcome = "pending"
	OutcomeCommitted       Outcome = "committed"
	OutcomePartiallyFailed Outcome = "partially_failed"
	OutcomeAborted         Outcome = "aborted"
	OutcomeCompleted       Outcome = "completed"
)

// Terminal reports whether the outcome is final.
func (o Outcome) Terminal() bool {
	return o == OutcomeCompleted || o == OutcomePartiallyFailed || o == OutcomeAborted
}

// Policy controls how a session treats node failures.
type Policy struct {
	// BestEffort tolerates a subset of node failures during Prepare and
	// Commit; the session proceeds with the remainder and reports partial
	// success explicitly.
	BestEffort bool `json:"best_effort"`
}

// NodeStatus is the session's view of one node. Each entry is written only
// by the goroutine dispatching to that node.
type NodeStatus struct {
	Node string `json:"node"`
	// Participating is false for nodes excluded during best-effort Prepare;
	// they no longer count toward the success criteria but stay visible.
	Participating bool            `json:"participating"`
	State         capture.State   `json:"state"`
	Reason        string          `json:"reason,omitempty"`
	Result        *capture.Result `json:"result,omitempty"`
}

// recordingSession is the coordinator-owned state of one session. All
// access goes through the coordinator's mutex.
type recordingSession struct {
	id        string
	params    capture.Params
	policy    Policy
	createdAt time.Time
	committed bool
	aborted   bool
	archived  bool
	nodes     map[string]*NodeStatus
}

// outcome computes the session's overall state from the per-node states:
// Completed iff every participating node is Done; PartiallyFailed iff at
// least one node failed or was excluded but at least one is Done; Aborted
// iff none completed.
func (s *recordingSession) outcome() Outcome {
	var done, failedOrExcluded, active int

	for _, ns := range s.nodes {
		switch {
		case !ns.Participating:
			failedOrExcluded++
		case ns.State == capture.StateDone:
			done++
		case ns.State == capture.StateFailed:
			failedOrExcluded++
		default:
			active++
		}
	}

	if active > 0 {
		if s.committed {
			return OutcomeCommitted
		}
		if s.aborted {
			return OutcomeAborted
		}
		return OutcomePending
	}

	switch {
	case done > 0 && failedOrExcluded == 0:
		return OutcomeCompleted
	case done > 0:
		return OutcomePartiallyFailed
	default:
		return OutcomeAborted
	}
}

// snapshot copies the session into an externally safe Status.
func (s *recordingSession) snapshot() *Status {
	status := &Status{
		ID:        s.id,
		Params:    s.params,
		Policy:    s.policy,
		CreatedAt: s.createdAt,
		Outcome:   s.outcome(),
	}

	for _, ns := range s.nodes {
		copied := *ns
		if ns.Result != nil {
			result := *ns.Result
			copied.Result = &result
		}
		status.Nodes = append(status.Nodes, copied)
	}
	sort.Slice(status.Nodes, func(i, j int) bool {
		return status.Nodes[i].Node < status.Nodes[j].Node
	})

	return status
}

// Status is the aggregated view returned by Poll.
type Status struct {
	ID        string         `json:"id"`
	Params    capture.Params `json:"params"`
	Policy    Policy         `json:"policy"`
	CreatedAt time.Time      `json:"created_at"`
	Outcome   Outcome        `json:"outcome"`
	Nodes     []NodeStatus   `json:"nodes"`
}
