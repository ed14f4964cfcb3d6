// Package contents provides the PostgreSQL-backed repository for learning
// content metadata. Media payloads live in object storage; rows only keep
// their keys.
package contents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/dbx"
	"github.com/dmitrijs2005/lms/internal/server/models"
)

const columns = `id, title, topic, description, image, audio, video, created_by, created_at`

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts content and fills its ID and CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, content *models.Content) (*models.Content, error) {
	query := `
		INSERT INTO contents (title, topic, description, image, audio, video, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		content.Title, content.Topic, content.Description,
		content.Image, content.Audio, content.Video, content.CreatedBy,
	).Scan(&content.ID, &content.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return content, nil
}

// Get returns the content with id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Content, error) {
	query := `SELECT ` + columns + ` FROM contents WHERE id = $1`

	c, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// List returns all content, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Content, error) {
	return r.selectMany(ctx, `SELECT `+columns+` FROM contents ORDER BY id DESC`)
}

// ListPublic returns the newest limit items for the public catalogue.
// A non-positive limit returns everything.
func (r *PostgresRepository) ListPublic(ctx context.Context, limit int) ([]*models.Content, error) {
	if limit <= 0 {
		return r.List(ctx)
	}
	return r.selectMany(ctx, `SELECT `+columns+` FROM contents ORDER BY id DESC LIMIT $1`, limit)
}

// Update overwrites the mutable fields of an existing row.
func (r *PostgresRepository) Update(ctx context.Context, content *models.Content) error {
	query := `
		UPDATE contents
		SET title = $1, topic = $2, description = $3, image = $4, audio = $5, video = $6
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		content.Title, content.Topic, content.Description,
		content.Image, content.Audio, content.Video, content.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes the row with id.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// Count returns the number of content items.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) selectMany(ctx context.Context, query string, args ...any) ([]*models.Content, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select contents: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(s scanner) (*models.Content, error) {
	var c models.Content
	if err := s.Scan(&c.ID, &c.Title, &c.Topic, &c.Description,
		&c.Image, &c.Audio, &c.Video, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
