package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/daruratku/lostfound/internal/models"
	"github.com/daruratku/lostfound/internal/policy"
)

// Errors returned by owner-guarded mutations so handlers can map them to
// the right status codes.
var (
	ErrNotFound          = errors.New("item not found")
	ErrNotOwner          = errors.New("item belongs to another user")
	ErrInvalidTransition = errors.New("status transition not permitted")
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(host, port, user, password, dbName, sslMode string) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	storage := &PostgresStorage{db: db}
	if err := storage.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize db schema: %w", err)
	}

	return storage, nil
}

// Init creates necessary tables and seeds the category list.
func (s *PostgresStorage) Init() error {
	query := `
	CREATE TABLE IF NOT EXISTS categories (
		id VARCHAR(36) PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		icon TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS lost_items (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		category_id VARCHAR(36) REFERENCES categories(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT NOT NULL,
		date_lost DATE NOT NULL,
		image_url TEXT,
		contact_phone TEXT NOT NULL,
		reward_amount BIGINT,
		status VARCHAR(20) NOT NULL DEFAULT 'lost',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_lost_items_owner_status ON lost_items(user_id, status, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_lost_items_status ON lost_items(status);

	CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		item_id VARCHAR(36) NOT NULL,
		kind VARCHAR(50) NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);`

	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	return s.seedCategories()
}

// Default categories, matching the consumer app's picker.
var defaultCategories = []models.Category{
	{ID: "c1a6f3a0-0000-4000-8000-000000000001", Name: "Dompet", Icon: "wallet"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000002", Name: "Elektronik", Icon: "smartphone"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000003", Name: "Dokumen", Icon: "file-text"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000004", Name: "Kunci", Icon: "key"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000005", Name: "Perhiasan", Icon: "gem"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000006", Name: "Tas", Icon: "briefcase"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000007", Name: "Hewan Peliharaan", Icon: "paw-print"},
	{ID: "c1a6f3a0-0000-4000-8000-000000000008", Name: "Lainnya", Icon: "package"},
}

func (s *PostgresStorage) seedCategories() error {
	for _, c := range defaultCategories {
		_, err := s.db.Exec(
			`INSERT INTO categories (id, name, icon) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			c.ID, c.Name, c.Icon,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

const itemColumns = `
	li.id, li.user_id, li.title, li.description, li.location, li.date_lost,
	li.image_url, li.contact_phone, li.reward_amount, li.status,
	li.created_at, li.updated_at,
	COALESCE(c.id, ''), COALESCE(c.name, ''), COALESCE(c.icon, '')`

func scanItem(row interface{ Scan(...interface{}) error }) (*models.LostItem, error) {
	item := &models.LostItem{}
	var imageURL sql.NullString
	var reward sql.NullInt64

	err := row.Scan(
		&item.ID, &item.UserID, &item.Title, &item.Description, &item.Location, &item.DateLost,
		&imageURL, &item.ContactPhone, &reward, &item.Status,
		&item.CreatedAt, &item.UpdatedAt,
		&item.Category.ID, &item.Category.Name, &item.Category.Icon,
	)
	if err != nil {
		return nil, err
	}

	item.ImageURL = imageURL.String
	item.RewardAmount = reward.Int64
	return item, nil
}

// Create inserts a new report.
func (s *PostgresStorage) Create(ctx context.Context, item *models.LostItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	var reward sql.NullInt64
	if item.RewardAmount > 0 {
		reward = sql.NullInt64{Int64: item.RewardAmount, Valid: true}
	}
	var imageURL sql.NullString
	if item.ImageURL != "" {
		imageURL = sql.NullString{String: item.ImageURL, Valid: true}
	}
	var categoryID sql.NullString
	if item.Category.ID != "" {
		categoryID = sql.NullString{String: item.Category.ID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO lost_items (
		id, user_id, category_id, title, description, location, date_lost,
		image_url, contact_phone, reward_amount, status, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.UserID, categoryID, item.Title, item.Description,
		item.Location, item.DateLost, imageURL, item.ContactPhone, reward,
		item.Status, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		log.Error().Err(err).Str("id", item.ID).Msg("Failed to insert item")
		return err
	}
	return nil
}

// Get retrieves a single report with its category.
func (s *PostgresStorage) Get(ctx context.Context, id string) (*models.LostItem, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT `+itemColumns+`
	FROM lost_items li
	LEFT JOIN categories c ON c.id = li.category_id
	WHERE li.id = $1`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to get item")
		return nil, err
	}
	return item, nil
}

// ListByOwner returns the given user's reports in one status, newest first.
func (s *PostgresStorage) ListByOwner(ctx context.Context, ownerID, status string) ([]*models.LostItem, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+itemColumns+`
	FROM lost_items li
	LEFT JOIN categories c ON c.id = li.category_id
	WHERE li.user_id = $1 AND li.status = $2
	ORDER BY li.created_at DESC`, ownerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

// List returns reports matching the browse filter, newest first.
func (s *PostgresStorage) List(ctx context.Context, filter models.ItemFilter) ([]*models.LostItem, error) {
	query := `
	SELECT ` + itemColumns + `
	FROM lost_items li
	LEFT JOIN categories c ON c.id = li.category_id
	WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND li.status = $%d", len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND li.category_id = $%d", len(args))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (li.title ILIKE $%d OR li.description ILIKE $%d OR li.location ILIKE $%d)", n, n, n)
	}
	query += " ORDER BY li.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]*models.LostItem, error) {
	var items []*models.LostItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateStatus moves a report to a new status. The single UPDATE is guarded
// by the owner id and by the set of statuses the target may be reached from,
// so forward-only transitions hold at the store, not just in the UI. When no
// row changes, a follow-up read distinguishes the failure.
func (s *PostgresStorage) UpdateStatus(ctx context.Context, id, ownerID, newStatus string) error {
	sources := policy.SourcesFor(newStatus)
	if len(sources) == 0 {
		return ErrInvalidTransition
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE lost_items SET status = $3, updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND status = ANY($4)`,
		id, ownerID, newStatus, pq.Array(sources),
	)
	if err != nil {
		log.Error().Err(err).Str("id", id).Str("status", newStatus).Msg("Failed to update item status")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	return s.explainGuardMiss(ctx, id, ownerID)
}

// Delete removes a report permanently. The stored image URL is returned so
// the caller can clean up the object store. Deletion is allowed from any
// status but only for the owner.
func (s *PostgresStorage) Delete(ctx context.Context, id, ownerID string) (string, error) {
	var imageURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
	DELETE FROM lost_items WHERE id = $1 AND user_id = $2
	RETURNING image_url`, id, ownerID).Scan(&imageURL)

	if errors.Is(err, sql.ErrNoRows) {
		return "", s.explainGuardMiss(ctx, id, ownerID)
	}
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to delete item")
		return "", err
	}
	return imageURL.String, nil
}

// explainGuardMiss turns a zero-row guarded mutation into a precise error.
func (s *PostgresStorage) explainGuardMiss(ctx context.Context, id, ownerID string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM lost_items WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrNotOwner
	}
	return ErrInvalidTransition
}

// ListCategories returns all report categories.
func (s *PostgresStorage) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SaveNotification records a notification produced by the event consumer.
func (s *PostgresStorage) SaveNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO notifications (id, user_id, item_id, kind, message, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.ItemID, n.Kind, n.Message, n.CreatedAt,
	)
	if err != nil {
		log.Error().Err(err).Str("item_id", n.ItemID).Msg("Failed to save notification")
		return err
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
