package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/storage/models"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		level TEXT NOT NULL,
		style TEXT NOT NULL,
		language TEXT,
		namespace TEXT,
		depth INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS plans (
		version TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		status TEXT NOT NULL,
		feedback TEXT,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_plans_session ON plans(session_id);
	CREATE INDEX IF NOT EXISTS idx_plans_created ON plans(created_at);

	CREATE TABLE IF NOT EXISTS ingests (
		namespace TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		source_key TEXT NOT NULL,
		title TEXT,
		language TEXT,
		chunk_count INTEGER NOT NULL,
		token_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_ingests_session ON ingests(session_id);

	CREATE TABLE IF NOT EXISTS contents (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		plan_version TEXT NOT NULL,
		payload TEXT NOT NULL,
		deck_payload TEXT NOT NULL,
		deck_file_name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (plan_version) REFERENCES plans(version)
	);
	CREATE INDEX IF NOT EXISTS idx_contents_session ON contents(session_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertSession(s *models.Session) error {
	query := `
		INSERT INTO sessions (id, topic, level, style, language, namespace, depth, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topic = excluded.topic,
			level = excluded.level,
			style = excluded.style,
			language = excluded.language,
			namespace = excluded.namespace,
			depth = excluded.depth,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		s.ID,
		s.Topic,
		s.Level,
		s.Style,
		s.Language,
		s.Namespace,
		s.Depth,
		s.CreatedAt.Unix(),
		s.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	logger.Debug("Session saved", zap.String("session_id", s.ID))
	return nil
}

func (c *Client) GetSession(id string) (*models.Session, error) {
	query := `SELECT id, topic, level, style, language, namespace, depth, created_at, updated_at FROM sessions WHERE id = ?`

	var s models.Session
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&s.ID,
		&s.Topic,
		&s.Level,
		&s.Style,
		&s.Language,
		&s.Namespace,
		&s.Depth,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Wrapf(errs.ErrNotFound, "session %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.CreatedAt = time.Unix(createdAt, 0)
	s.UpdatedAt = time.Unix(updatedAt, 0)

	return &s, nil
}

func (c *Client) InsertPlan(p *models.PlanRecord) error {
	query := `
		INSERT INTO plans (version, session_id, status, feedback, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		p.Version,
		p.SessionID,
		p.Status,
		p.Feedback,
		p.Payload,
		p.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	logger.Debug("Plan version saved",
		zap.String("version", p.Version),
		zap.String("session_id", p.SessionID),
	)
	return nil
}

func (c *Client) UpdatePlanStatus(version, status string) error {
	res, err := c.db.Exec(`UPDATE plans SET status = ? WHERE version = ?`, status, version)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.Wrapf(errs.ErrNotFound, "plan version %s", version)
	}
	return nil
}

func (c *Client) GetPlan(version string) (*models.PlanRecord, error) {
	query := `SELECT version, session_id, status, feedback, payload, created_at FROM plans WHERE version = ?`

	var p models.PlanRecord
	var createdAt int64

	err := c.db.QueryRow(query, version).Scan(
		&p.Version,
		&p.SessionID,
		&p.Status,
		&p.Feedback,
		&p.Payload,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Wrapf(errs.ErrNotFound, "plan version %s", version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// GetPlanHistory returns every plan version of a session, newest first.
func (c *Client) GetPlanHistory(sessionID string) ([]models.PlanRecord, error) {
	query := `
		SELECT version, session_id, status, feedback, payload, created_at
		FROM plans
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := c.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plan history: %w", err)
	}
	defer rows.Close()

	var records []models.PlanRecord
	for rows.Next() {
		var p models.PlanRecord
		var createdAt int64

		err := rows.Scan(&p.Version, &p.SessionID, &p.Status, &p.Feedback, &p.Payload, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		p.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, p)
	}

	return records, nil
}

func (c *Client) UpsertIngest(r *models.IngestRecord) error {
	query := `
		INSERT INTO ingests (namespace, session_id, kind, source_key, title, language, chunk_count, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			chunk_count = excluded.chunk_count,
			token_count = excluded.token_count,
			title = excluded.title
	`

	_, err := c.db.Exec(
		query,
		r.Namespace,
		r.SessionID,
		r.Kind,
		r.SourceKey,
		r.Title,
		r.Language,
		r.ChunkCount,
		r.TokenCount,
		r.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert ingest record: %w", err)
	}

	logger.Debug("Ingest recorded", zap.String("namespace", r.Namespace))
	return nil
}

func (c *Client) InsertContent(r *models.ContentRecord) error {
	query := `
		INSERT INTO contents (id, session_id, plan_version, payload, deck_payload, deck_file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		r.ID,
		r.SessionID,
		r.PlanVersion,
		r.Payload,
		r.DeckPayload,
		r.DeckFileName,
		r.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}

	logger.Info("Content saved",
		zap.String("content_id", r.ID),
		zap.String("session_id", r.SessionID),
		zap.String("plan_version", r.PlanVersion),
	)
	return nil
}

func (c *Client) GetContent(id string) (*models.ContentRecord, error) {
	query := `SELECT id, session_id, plan_version, payload, deck_payload, deck_file_name, created_at FROM contents WHERE id = ?`

	var r models.ContentRecord
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&r.ID,
		&r.SessionID,
		&r.PlanVersion,
		&r.Payload,
		&r.DeckPayload,
		&r.DeckFileName,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.Wrapf(errs.ErrNotFound, "content %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}
