package cli

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kenjp1223/dual-camera/core/ccc/db"
	"github.com/kenjp1223/dual-camera/core/config"
	"github.com/kenjp1223/dual-camera/core/nodeclient"
	"github.com/kenjp1223/dual-camera/core/nodes"
)

func newTestDeps(t *testing.T, client nodeclient.Client, names ...string) *Dependencies {
	t.Helper()

	database, err := db.NewInMemoryDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	nodeRepo, err := nodes.NewSQLiteNodeRepository(database)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for _, name := range names {
		node := &nodes.Node{
			Name:       name,
			BaseURL:    "http://" + name + ":5000",
			Cam0Device: "/dev/video0",
			Cam1Device: "/dev/video2",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := nodeRepo.Create(context.Background(), node); err != nil {
			t.Fatal(err)
		}
	}

	return &Dependencies{
		Config:   config.DefaultConfig(),
		NodeRepo: nodeRepo,
		Client:   client,
	}
}

func TestRecordDefaultsToAllRegisteredNodes(t *testing.T) {
	client := nodeclient.NewMockClient()
	// Failing prepare everywhere keeps the session short: it aborts in
	// strict mode and the command returns after one poll.
	client.PrepareErrs["alpha"] = &nodeclient.RequestError{Node: "alpha", Unreachable: true}
	client.PrepareErrs["beta"] = &nodeclient.RequestError{Node: "beta", Unreachable: true}

	deps := newTestDeps(t, client, "alpha", "beta")

	cmd := NewRecordCmd(deps)
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected the aborted session to surface as an error")
	}

	for _, name := range []string{"alpha", "beta"} {
		if client.PrepareCalls[name] != 1 {
			t.Errorf("Expected node %s to be prepared once without --nodes, got %d calls", name, client.PrepareCalls[name])
		}
	}
}

func TestRecordNodesFlagRestrictsSelection(t *testing.T) {
	client := nodeclient.NewMockClient()
	client.PrepareErrs["alpha"] = &nodeclient.RequestError{Node: "alpha", Unreachable: true}

	deps := newTestDeps(t, client, "alpha", "beta")

	cmd := NewRecordCmd(deps)
	cmd.SetArgs([]string{"--nodes", "alpha"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected the aborted session to surface as an error")
	}

	if client.PrepareCalls["alpha"] != 1 {
		t.Errorf("Expected the selected node to be prepared, got %d calls", client.PrepareCalls["alpha"])
	}
	if client.PrepareCalls["beta"] != 0 {
		t.Errorf("Expected the unselected node to be left alone, got %d calls", client.PrepareCalls["beta"])
	}
}
