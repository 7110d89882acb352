package nodes

import (
	"fmt"
	"sort"
	"time"
)

// Node describes one recording host with two attached cameras. Nodes are
// registered out of band (CLI, config) and consumed read-only by the
// session coordinator.
type Node struct {
	Name       string    `json:"name"`
	BaseURL    string    `json:"base_url"`
	Cam0Device string    `json:"cam0_device"`
	Cam1Device string    `json:"cam1_device"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Directory is an immutable snapshot of the node registry. Coordinators are
// constructed with a Directory so independent coordinators (and tests) never
// share mutable registry state.
type Directory struct {
	byName map[string]*Node
}

// NewDirectory builds a Directory from a node list. Duplicate names are an
// error since session status is keyed by name.
func NewDirectory(list []*Node) (*Directory, error) {
	byName := make(map[string]*Node, len(list))
	for _, n := range list {
		if n.Name == "" {
			return nil, fmt.Errorf("node with empty name")
		}
		if _, ok := byName[n.Name]; ok {
			return nil, fmt.Errorf("duplicate node name: %s", n.Name)
		}
		copied := *n
		byName[n.Name] = &copied
	}
	return &Directory{byName: byName}, nil
}

// Get returns the node with the given name, or nil if unknown.
func (d *Directory) Get(name string) *Node {
	return d.byName[name]
}

// Names returns all registered node names in stable order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered nodes.
func (d *Directory) Len() int {
	return len(d.byName)
}
