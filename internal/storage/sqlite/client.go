package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/storage/models"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

const itemsTable = "items"

var itemColumns = []string{
	"id", "item_type", "title", "url", "payload",
	"extracted_skills", "detailed_skills", "has_detailed", "created_at",
}

type Client struct {
	db  *sql.DB
	now func() time.Time
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers anyway; one connection also keeps
	// ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db, now: time.Now}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		item_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL DEFAULT '{}',
		extracted_skills TEXT NOT NULL DEFAULT '[]',
		detailed_skills TEXT NOT NULL DEFAULT '{}',
		has_detailed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_type_created ON items(item_type, created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Database schema initialized")
	return nil
}

// UpsertItem inserts the item or refreshes its content. created_at keeps
// the first-seen time.
func (c *Client) UpsertItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = c.now()
	}

	extracted, err := json.Marshal(nonNil(item.ExtractedSkills))
	if err != nil {
		return fmt.Errorf("failed to marshal extracted skills: %w", err)
	}

	query, args, err := sq.Insert(itemsTable).
		Columns(itemColumns...).
		Values(
			item.ID,
			item.ItemType,
			item.Title,
			item.URL,
			rawOr(item.Payload, "{}"),
			string(extracted),
			rawOr(item.DetailedSkills, "{}"),
			item.HasDetailed,
			item.CreatedAt.Unix(),
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			item_type = excluded.item_type,
			title = excluded.title,
			url = excluded.url,
			payload = excluded.payload,
			extracted_skills = excluded.extracted_skills,
			detailed_skills = excluded.detailed_skills,
			has_detailed = excluded.has_detailed`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

func (c *Client) GetItem(ctx context.Context, id string) (*models.Item, error) {
	query, args, err := sq.Select(itemColumns...).
		From(itemsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	item, err := scanItem(c.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItems returns items newest first.
func (c *Client) ListItems(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	builder := sq.Select(itemColumns...).
		From(itemsTable).
		OrderBy("created_at DESC", "id")
	builder = applyFilter(builder, filter.ItemType, filter.Since)
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// CountItems counts items of itemType (all types when empty) created at or
// after since (no bound when zero).
func (c *Client) CountItems(ctx context.Context, itemType string, since time.Time) (int, error) {
	builder := applyFilter(sq.Select("COUNT(*)").From(itemsTable), itemType, since)

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func applyFilter(builder sq.SelectBuilder, itemType string, since time.Time) sq.SelectBuilder {
	if itemType != "" {
		builder = builder.Where(sq.Eq{"item_type": itemType})
	}
	if !since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"created_at": since.Unix()})
	}
	return builder
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item      models.Item
		payload   string
		extracted string
		detailed  string
		created   int64
	)

	err := row.Scan(
		&item.ID,
		&item.ItemType,
		&item.Title,
		&item.URL,
		&payload,
		&extracted,
		&detailed,
		&item.HasDetailed,
		&created,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(extracted), &item.ExtractedSkills); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extracted skills: %w", err)
	}
	item.ExtractedSkills = nonNil(item.ExtractedSkills)
	item.Payload = json.RawMessage(payload)
	item.DetailedSkills = json.RawMessage(detailed)
	item.CreatedAt = time.Unix(created, 0)

	return &item, nil
}

func rawOr(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	return string(raw)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
