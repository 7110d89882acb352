package nodes

import "testing"

func TestNewDirectory(t *testing.T) {
	directory, err := NewDirectory([]*Node{
		{Name: "beta", BaseURL: "http://beta:5000"},
		{Name: "alpha", BaseURL: "http://alpha:5000"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if directory.Len() != 2 {
		t.Errorf("Expected 2 nodes, got %d", directory.Len())
	}

	node := directory.Get("alpha")
	if node == nil {
		t.Fatal("Expected to find node alpha")
	}
	if node.BaseURL != "http://alpha:5000" {
		t.Errorf("Expected base URL http://alpha:5000, got %s", node.BaseURL)
	}

	if directory.Get("ghost") != nil {
		t.Error("Expected nil for unknown node")
	}

	names := directory.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Expected sorted names [alpha beta], got %v", names)
	}
}

func TestNewDirectoryRejectsDuplicates(t *testing.T) {
	_, err := NewDirectory([]*Node{
		{Name: "alpha"},
		{Name: "alpha"},
	})
	if err == nil {
		t.Fatal("Expected duplicate name error")
	}
}

func TestNewDirectoryRejectsEmptyName(t *testing.T) {
	_, err := NewDirectory([]*Node{{Name: ""}})
	if err == nil {
		t.Fatal("Expected empty name error")
	}
}

func TestDirectoryCopiesNodes(t *testing.T) {
	original := &Node{Name: "alpha", BaseURL: "http://alpha:5000"}
	directory, err := NewDirectory([]*Node{original})
	if err != nil {
		t.Fatal(err)
	}

	original.BaseURL = "http://changed:5000"

	if got := directory.Get("alpha").BaseURL; got != "http://alpha:5000" {
		t.Errorf("Expected directory to hold a copy, got %s", got)
	}
}
