// Package groups provides account group storage and the assembled
// grouping configuration used by balance aggregation.
package groups

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Group is one named collection of accounts belonging to an owner.
type Group struct {
	ID        string   `json:"id"`
	Owner     string   `json:"owner,omitempty"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// Repository handles account_groups table operations in finance.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new groups repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "groups").Logger(),
	}
}

// Create stores a new group and returns it with its generated ID.
func (r *Repository) Create(owner, name string, members []string) (*Group, error) {
	if members == nil {
		members = []string{}
	}
	encoded, err := json.Marshal(members)
	if err != nil {
		return nil, fmt.Errorf("failed to encode members: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	group := &Group{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      name,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.db.Exec(`
		INSERT INTO account_groups (id, owner, name, members, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, group.ID, owner, name, string(encoded), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create group %q: %w", name, err)
	}
	return group, nil
}

// Update replaces a group's name and members. ok is false when no group
// with that ID exists for the owner.
func (r *Repository) Update(owner, id, name string, members []string) (bool, error) {
	if members == nil {
		members = []string{}
	}
	encoded, err := json.Marshal(members)
	if err != nil {
		return false, fmt.Errorf("failed to encode members: %w", err)
	}

	result, err := r.db.Exec(`
		UPDATE account_groups
		SET name = ?, members = ?, updated_at = ?
		WHERE owner = ? AND id = ?
	`, name, string(encoded), time.Now().UTC().Format(time.RFC3339), owner, id)
	if err != nil {
		return false, fmt.Errorf("failed to update group %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check group update: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a group. ok is false when nothing was deleted.
func (r *Repository) Delete(owner, id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM account_groups WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete group %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check group delete: %w", err)
	}
	return affected > 0, nil
}

// Get returns one group by ID, or nil when not found.
func (r *Repository) Get(owner, id string) (*Group, error) {
	row := r.db.QueryRow(`
		SELECT id, owner, name, members, created_at, updated_at
		FROM account_groups
		WHERE owner = ? AND id = ?
	`, owner, id)
	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", id, err)
	}
	return group, nil
}

// List returns all groups for an owner ordered by name.
func (r *Repository) List(owner string) ([]Group, error) {
	rows, err := r.db.Query(`
		SELECT id, owner, name, members, created_at, updated_at
		FROM account_groups
		WHERE owner = ?
		ORDER BY name
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row scanner) (*Group, error) {
	var g Group
	var members string
	if err := row.Scan(&g.ID, &g.Owner, &g.Name, &members, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return nil, fmt.Errorf("failed to decode members of group %s: %w", g.ID, err)
	}
	return &g, nil
}
