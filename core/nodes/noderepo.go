package nodes

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kenjp1223/dual-camera/core/ccc/db"
)

type NodeRepository interface {
	// GetByName retrieves a Node by its name
	GetByName(ctx context.Context, name string) (*Node, error)
	// GetAll retrieves all Nodes
	GetAll(ctx context.Context) ([]*Node, error)
	// Create adds a new Node to the repository
	Create(ctx context.Context, node *Node) error
	// Update modifies an existing Node in the repository
	Update(ctx context.Context, node *Node) error
	// Delete removes a Node from the repository
	Delete(ctx context.Context, name string) error
}

// SQLiteNodeRepository implements NodeRepository using SQLite
type SQLiteNodeRepository struct {
	db *sql.DB
}

// NewSQLiteNodeRepository creates a new SQLite-based NodeRepository
func NewSQLiteNodeRepository(database *sql.DB) (*SQLiteNodeRepository, error) {
	repo := &SQLiteNodeRepository{db: database}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *SQLiteNodeRepository) createTables() error {
	createNodesTable := `
	CREATE TABLE IF NOT EXISTS nodes (
		name TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		cam0_device TEXT NOT NULL,
		cam1_device TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`

	_, err := r.db.Exec(createNodesTable)
	return err
}

// GetByName retrieves a Node by its name
func (r *SQLiteNodeRepository) GetByName(ctx context.Context, name string) (*Node, error) {
	query := `
	SELECT name, base_url, cam0_device, cam1_device, created_at, updated_at
	FROM nodes WHERE name = ?`

	row := r.db.QueryRowContext(ctx, query, name)

	node := &Node{}
	var createdAtStr, updatedAtStr string
	err := row.Scan(&node.Name, &node.BaseURL, &node.Cam0Device, &node.Cam1Device, &createdAtStr, &updatedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get node by name: %w", err)
	}

	node.CreatedAt, err = db.StringToTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	node.UpdatedAt, err = db.StringToTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}

	return node, nil
}

// GetAll retrieves all Nodes
func (r *SQLiteNodeRepository) GetAll(ctx context.Context) ([]*Node, error) {
	query := `
	SELECT name, base_url, cam0_device, cam1_device, created_at, updated_at
	FROM nodes ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var result []*Node
	for rows.Next() {
		node := &Node{}
		var createdAtStr, updatedAtStr string
		err := rows.Scan(&node.Name, &node.BaseURL, &node.Cam0Device, &node.Cam1Device, &createdAtStr, &updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		node.CreatedAt, err = db.StringToTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}

		node.UpdatedAt, err = db.StringToTime(updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
		}

		result = append(result, node)
	}

	return result, rows.Err()
}

// Create adds a new Node to the repository
func (r *SQLiteNodeRepository) Create(ctx context.Context, node *Node) error {
	query := `
	INSERT INTO nodes (name, base_url, cam0_device, cam1_device, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		node.Name, node.BaseURL, node.Cam0Device, node.Cam1Device,
		db.TimeToString(node.CreatedAt), db.TimeToString(node.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	return nil
}

// Update modifies an existing Node in the repository
func (r *SQLiteNodeRepository) Update(ctx context.Context, node *Node) error {
	query := `
	UPDATE nodes SET base_url = ?, cam0_device = ?, cam1_device = ?, updated_at = ?
	WHERE name = ?`

	result, err := r.db.ExecContext(ctx, query,
		node.BaseURL, node.Cam0Device, node.Cam1Device,
		db.TimeToString(node.UpdatedAt), node.Name)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("node not found: %s", node.Name)
	}

	return nil
}

// Delete removes a Node from the repository
func (r *SQLiteNodeRepository) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM nodes WHERE name = ?`

	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("node not found: %s", name)
	}

	return nil
}
