package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/catalog/internal/core/domain"
)

// likeEscaper escapes LIKE wildcards with '!', which both MySQL and SQLite
// accept as an ESCAPE character without string-literal quirks.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SQLStore mirrors the catalog into an items table. It runs on MySQL in
// production and on SQLite locally.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (m *SQLStore) EnsureSchema(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS items (
			id BIGINT NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(64) NOT NULL DEFAULT '',
			price DOUBLE NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}

// ImportItems replaces the table contents with items in one transaction.
func (m *SQLStore) ImportItems(ctx context.Context, items []domain.Item) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (id, name, category, price)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.ID, item.Name, item.Category, item.Price); err != nil {
			return fmt.Errorf("insert item %d: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

func (m *SQLStore) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	query = query.Normalize()

	var where string
	var args []any
	if query.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(query.Search)) + "%"
		where = ` WHERE LOWER(name) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!'`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return domain.ItemPage{}, fmt.Errorf("count items: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, category, price
		FROM items`+where+`
		ORDER BY id
		LIMIT ? OFFSET ?`,
		append(args, query.Limit, query.Offset())...,
	)
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, query.Limit)
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price); err != nil {
			return domain.ItemPage{}, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.ItemPage{}, fmt.Errorf("iterate items: %w", err)
	}

	return domain.NewItemPage(items, total, query), nil
}

func (m *SQLStore) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var item domain.Item
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, category, price
		FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.Category, &item.Price)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}

	return &item, nil
}
