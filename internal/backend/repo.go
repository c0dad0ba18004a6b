package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/itemdesk/internal/apperr"
	"github.com/starford/itemdesk/internal/models"
)

// Fields carries the user-supplied columns of a create or update request.
// A nil field was absent from the request body.
type Fields struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
}

// Page is one slice of a listing.
type Page struct {
	Items   []models.Item
	LastKey string
}

const itemColumns = `id, name, description, category, tags, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (models.Item, error) {
	var (
		it                   models.Item
		category, tags       sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&it.ID, &it.Name, &it.Description, &category, &tags, &createdAt, &updatedAt); err != nil {
		return models.Item{}, err
	}
	it.Category = category.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &it.Tags); err != nil {
			return models.Item{}, fmt.Errorf("backend: decode tags of %s: %w", it.ID, err)
		}
	}
	var err error
	if it.CreatedAt, err = models.ParseTimestamp(createdAt); err != nil {
		return models.Item{}, err
	}
	if it.UpdatedAt, err = models.ParseTimestamp(updatedAt); err != nil {
		return models.Item{}, err
	}
	return it, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func encodeTags(tags *[]string) (sql.NullString, error) {
	if tags == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(*tags)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("backend: encode tags: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Insert stores a new item with a fresh id and both timestamps set to now.
// Name and Description must be present.
func (db *DB) Insert(ctx context.Context, f Fields) (models.Item, error) {
	if f.Name == nil || f.Description == nil {
		return models.Item{}, apperr.Validation("name and description are required")
	}
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return models.Item{}, err
	}
	id := uuid.NewString()
	now := formatTime(db.now())

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, *f.Name, *f.Description, nullString(f.Category), tags, now, now)
	if err != nil {
		return models.Item{}, fmt.Errorf("backend: insert item: %w", err)
	}
	return db.Get(ctx, id)
}

// Get returns one item or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (models.Item, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, fmt.Errorf("backend: item %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Item{}, fmt.Errorf("backend: get item: %w", err)
	}
	return it, nil
}

// List returns items ordered by id, starting after afterID. limit <= 0
// returns every remaining row. LastKey is set when more rows follow.
func (db *DB) List(ctx context.Context, limit int, afterID string) (Page, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id > ? ORDER BY id`
	args := []any{afterID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit+1)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("backend: list items: %w", err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return Page{}, fmt.Errorf("backend: scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if limit > 0 && len(items) > limit {
		page.Items = items[:limit]
		page.LastKey = items[limit-1].ID
	}
	return page, nil
}

// Update applies the present fields and refreshes updated_at.
func (db *DB) Update(ctx context.Context, id string, f Fields) (models.Item, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(db.now())}

	if f.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *f.Name)
	}
	if f.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *f.Description)
	}
	if f.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *f.Category)
	}
	if f.Tags != nil {
		tags, err := encodeTags(f.Tags)
		if err != nil {
			return models.Item{}, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, tags)
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx, `UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return models.Item{}, fmt.Errorf("backend: update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Item{}, fmt.Errorf("backend: item %s: %w", id, apperr.ErrNotFound)
	}
	return db.Get(ctx, id)
}

// Delete removes an item or returns apperr.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("backend: delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("backend: item %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
