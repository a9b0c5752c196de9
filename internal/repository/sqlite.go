package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hanloto/fortuna/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			mode TEXT NOT NULL,
			remaining_seconds INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			is_active INTEGER NOT NULL,
			requested_form TEXT,
			original_input TEXT,
			user_data TEXT,
			created_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(is_active, expires_at)`,
		`CREATE TABLE IF NOT EXISTS conversation_logs (
			log_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_input TEXT NOT NULL,
			assistant_reply TEXT NOT NULL,
			elapsed_seconds INTEGER NOT NULL,
			paid INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_session ON conversation_logs(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS recommendation_params (
			params_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			game_count INTEGER NOT NULL,
			round INTEGER NOT NULL DEFAULT 0,
			conditions TEXT,
			order_id TEXT,
			status TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_params_user ON recommendation_params(user_id, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_params_order ON recommendation_params(order_id) WHERE order_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_params_status ON recommendation_params(status, expires_at)`,
		`CREATE TABLE IF NOT EXISTS recommendation_results (
			result_id TEXT PRIMARY KEY,
			params_id TEXT,
			order_id TEXT,
			user_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			number_sets TEXT NOT NULL,
			analysis_text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_results_order ON recommendation_results(order_id) WHERE order_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_results_user ON recommendation_results(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

// CreateSession persists a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	var userData sql.NullString
	if len(sess.UserData) > 0 {
		userData = sql.NullString{String: string(sess.UserData), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, category, mode, remaining_seconds, expires_at, is_active, requested_form, original_input, user_data, created_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.UserID, sess.Category, sess.Mode, sess.RemainingSeconds, sess.ExpiresAt,
		boolToInt(sess.IsActive), sess.RequestedForm, sess.OriginalInput, userData, sess.CreatedAt, sess.Version)
	return err
}

const sessionColumns = `session_id, user_id, category, mode, remaining_seconds, expires_at, is_active, requested_form, original_input, user_data, created_at, version`

func scanSession(row interface{ Scan(...interface{}) error }) (*domain.Session, error) {
	var sess domain.Session
	var isActive int
	var requestedForm, originalInput, userData sql.NullString
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.Category, &sess.Mode, &sess.RemainingSeconds,
		&sess.ExpiresAt, &isActive, &requestedForm, &originalInput, &userData, &sess.CreatedAt, &sess.Version)
	if err != nil {
		return nil, err
	}
	sess.IsActive = isActive != 0
	if requestedForm.Valid {
		sess.RequestedForm = requestedForm.String
	}
	if originalInput.Valid {
		sess.OriginalInput = originalInput.String
	}
	if userData.Valid && userData.String != "" {
		sess.UserData = json.RawMessage(userData.String)
	}
	return &sess, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSessionsByUser retrieves a user's sessions, optionally active only.
func (s *SQLiteStore) GetSessionsByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// FindActiveSession finds a user's active session for a category.
func (s *SQLiteStore) FindActiveSession(ctx context.Context, userID string, category domain.Category) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND category = ? AND is_active = 1 ORDER BY created_at DESC LIMIT 1`,
		userID, category)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSession writes a session snapshot guarded by its version. A
// stale version means another writer got there first.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *domain.Session) error {
	var userData sql.NullString
	if len(sess.UserData) > 0 {
		userData = sql.NullString{String: string(sess.UserData), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET remaining_seconds = ?, expires_at = ?, is_active = ?, user_data = ?, version = version + 1
		 WHERE session_id = ? AND version = ?`,
		sess.RemainingSeconds, sess.ExpiresAt, boolToInt(sess.IsActive), userData, sess.SessionID, sess.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.NewConflictError("session", sess.SessionID)
	}
	sess.Version++
	return nil
}

// SweepExpiredSessions force-closes active sessions past their deadline.
// Safe to run repeatedly or concurrently; each row is closed at most once.
func (s *SQLiteStore) SweepExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET remaining_seconds = 0, is_active = 0, expires_at = ?, version = version + 1
		 WHERE is_active = 1 AND expires_at <= ?`,
		now, now)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// --- Conversation log ---

// AppendLogEntry persists one exchange. Entries are never updated.
func (s *SQLiteStore) AppendLogEntry(ctx context.Context, e *domain.ConversationLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_logs (log_id, session_id, user_input, assistant_reply, elapsed_seconds, paid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.LogID, e.SessionID, e.UserInput, e.AssistantReply, e.ElapsedSeconds, boolToInt(e.Paid), e.CreatedAt)
	return err
}

const logColumns = `log_id, session_id, user_input, assistant_reply, elapsed_seconds, paid, created_at`

func scanLogEntry(row interface{ Scan(...interface{}) error }) (*domain.ConversationLogEntry, error) {
	var e domain.ConversationLogEntry
	var paid int
	if err := row.Scan(&e.LogID, &e.SessionID, &e.UserInput, &e.AssistantReply, &e.ElapsedSeconds, &paid, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Paid = paid != 0
	return &e, nil
}

// GetLogEntry retrieves one log entry by ID.
func (s *SQLiteStore) GetLogEntry(ctx context.Context, logID string) (*domain.ConversationLogEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM conversation_logs WHERE log_id = ?`, logID)
	e, err := scanLogEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetLogEntries retrieves all entries of a session, oldest first.
func (s *SQLiteStore) GetLogEntries(ctx context.Context, sessionID string) ([]domain.ConversationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM conversation_logs WHERE session_id = ? ORDER BY created_at ASC, log_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogEntries(rows)
}

// GetRecentLogEntries returns the last k entries, oldest first.
func (s *SQLiteStore) GetRecentLogEntries(ctx context.Context, sessionID string, k int) ([]domain.ConversationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM (
			SELECT `+logColumns+` FROM conversation_logs WHERE session_id = ? ORDER BY created_at DESC, log_id DESC LIMIT ?
		) ORDER BY created_at ASC, log_id ASC`,
		sessionID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogEntries(rows)
}

func collectLogEntries(rows *sql.Rows) ([]domain.ConversationLogEntry, error) {
	var entries []domain.ConversationLogEntry
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// --- Recommendation params ---

// CreateParams persists a new generation request.
func (s *SQLiteStore) CreateParams(ctx context.Context, p *domain.RecommendationParams) error {
	conds, err := marshalConditions(p.Conds)
	if err != nil {
		return err
	}
	var orderID sql.NullString
	if p.OrderID != "" {
		orderID = sql.NullString{String: p.OrderID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recommendation_params (params_id, user_id, type, game_count, round, conditions, order_id, status, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ParamsID, p.UserID, p.Type, p.GameCount, p.Round, conds, orderID, p.Status, p.ExpiresAt, p.CreatedAt, p.UpdatedAt)
	return err
}

const paramsColumns = `params_id, user_id, type, game_count, round, conditions, order_id, status, expires_at, created_at, updated_at`

func scanParams(row interface{ Scan(...interface{}) error }) (*domain.RecommendationParams, error) {
	var p domain.RecommendationParams
	var conds, orderID sql.NullString
	err := row.Scan(&p.ParamsID, &p.UserID, &p.Type, &p.GameCount, &p.Round, &conds, &orderID,
		&p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		p.OrderID = orderID.String
	}
	if conds.Valid && conds.String != "" {
		var c domain.Conditions
		if err := json.Unmarshal([]byte(conds.String), &c); err != nil {
			return nil, fmt.Errorf("failed to decode conditions: %w", err)
		}
		p.Conds = &c
	}
	return &p, nil
}

func marshalConditions(c *domain.Conditions) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode conditions: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// GetParams retrieves a request by ID.
func (s *SQLiteStore) GetParams(ctx context.Context, paramsID string) (*domain.RecommendationParams, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paramsColumns+` FROM recommendation_params WHERE params_id = ?`, paramsID)
	p, err := scanParams(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetParamsByUser retrieves a user's requests, newest first.
func (s *SQLiteStore) GetParamsByUser(ctx context.Context, userID string) ([]domain.RecommendationParams, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paramsColumns+` FROM recommendation_params WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParams(rows)
}

// GetParamsByOrderID retrieves the request linked to an order.
func (s *SQLiteStore) GetParamsByOrderID(ctx context.Context, orderID string) (*domain.RecommendationParams, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paramsColumns+` FROM recommendation_params WHERE order_id = ?`, orderID)
	p, err := scanParams(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetParamsByStatus retrieves requests in a given status.
func (s *SQLiteStore) GetParamsByStatus(ctx context.Context, status domain.RecommendationStatus) ([]domain.RecommendationParams, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paramsColumns+` FROM recommendation_params WHERE status = ? ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParams(rows)
}

func collectParams(rows *sql.Rows) ([]domain.RecommendationParams, error) {
	var out []domain.RecommendationParams
	for rows.Next() {
		p, err := scanParams(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateParams rewrites the mutable fields of a request.
func (s *SQLiteStore) UpdateParams(ctx context.Context, p *domain.RecommendationParams) error {
	conds, err := marshalConditions(p.Conds)
	if err != nil {
		return err
	}
	var orderID sql.NullString
	if p.OrderID != "" {
		orderID = sql.NullString{String: p.OrderID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE recommendation_params SET game_count = ?, round = ?, conditions = ?, order_id = ?, status = ?, updated_at = ?
		 WHERE params_id = ?`,
		p.GameCount, p.Round, conds, orderID, p.Status, p.UpdatedAt, p.ParamsID)
	return err
}

// LinkParamsToOrder attaches an order to a still-PENDING request. The
// status guard lives in the WHERE clause so two racing links cannot
// both pass; the unique order index rejects an order that is already
// attached elsewhere.
func (s *SQLiteStore) LinkParamsToOrder(ctx context.Context, paramsID, orderID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recommendation_params SET order_id = ?, status = ?, updated_at = ?
		 WHERE params_id = ? AND status = ?`,
		orderID, domain.StatusPaymentPending, now, paramsID, domain.StatusPending)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.NewConflictError("order link", orderID)
		}
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// TransitionParamsStatus moves a request between statuses with the
// source set guarded in the WHERE clause. A transition that finds the
// row in none of the from statuses is a no-op, so a stale caller can
// never pull a claimed or finished request backwards.
func (s *SQLiteStore) TransitionParamsStatus(ctx context.Context, paramsID string, to domain.RecommendationStatus, now time.Time, from ...domain.RecommendationStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one source status", to)
	}
	args := []interface{}{to, now, paramsID}
	for _, f := range from {
		args = append(args, f)
	}
	placeholders := strings.TrimPrefix(strings.Repeat(",?", len(from)), ",")
	res, err := s.db.ExecContext(ctx,
		`UPDATE recommendation_params SET status = ?, updated_at = ?
		 WHERE params_id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ClaimForGeneration atomically claims a request for generation. The
// guard lives in the WHERE clause so two racing callers cannot both win.
func (s *SQLiteStore) ClaimForGeneration(ctx context.Context, paramsID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recommendation_params SET status = ?, updated_at = ?
		 WHERE params_id = ? AND status IN (?, ?)`,
		domain.StatusGenerating, now, paramsID, domain.StatusPaymentCompleted, domain.StatusFailed)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteParams removes a request.
func (s *SQLiteStore) DeleteParams(ctx context.Context, paramsID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recommendation_params WHERE params_id = ?`, paramsID)
	return err
}

// SweepExpiredParams marks expired non-terminal requests EXPIRED.
func (s *SQLiteStore) SweepExpiredParams(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recommendation_params SET status = ?, updated_at = ?
		 WHERE expires_at <= ? AND status NOT IN (?, ?)`,
		domain.StatusExpired, now, now, domain.StatusCompleted, domain.StatusExpired)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// PurgeExpiredParams deletes requests that are expired and non-terminal
// or already marked EXPIRED. Pure garbage collection.
func (s *SQLiteStore) PurgeExpiredParams(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM recommendation_params
		 WHERE status = ? OR (expires_at <= ? AND status NOT IN (?, ?))`,
		domain.StatusExpired, now, domain.StatusCompleted, domain.StatusExpired)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// --- Results ---

// CreateResult persists a generation result. The unique order index
// backs the at-most-once-per-order guarantee.
func (s *SQLiteStore) CreateResult(ctx context.Context, r *domain.RecommendationResult) error {
	sets, err := json.Marshal(r.NumberSets)
	if err != nil {
		return fmt.Errorf("failed to encode number sets: %w", err)
	}
	var paramsID, orderID sql.NullString
	if r.ParamsID != "" {
		paramsID = sql.NullString{String: r.ParamsID, Valid: true}
	}
	if r.OrderID != "" {
		orderID = sql.NullString{String: r.OrderID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recommendation_results (result_id, params_id, order_id, user_id, round, number_sets, analysis_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ResultID, paramsID, orderID, r.UserID, r.Round, string(sets), r.AnalysisText, r.CreatedAt)
	return err
}

const resultColumns = `result_id, params_id, order_id, user_id, round, number_sets, analysis_text, created_at`

func scanResult(row interface{ Scan(...interface{}) error }) (*domain.RecommendationResult, error) {
	var r domain.RecommendationResult
	var paramsID, orderID sql.NullString
	var sets string
	err := row.Scan(&r.ResultID, &paramsID, &orderID, &r.UserID, &r.Round, &sets, &r.AnalysisText, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paramsID.Valid {
		r.ParamsID = paramsID.String
	}
	if orderID.Valid {
		r.OrderID = orderID.String
	}
	if err := json.Unmarshal([]byte(sets), &r.NumberSets); err != nil {
		return nil, fmt.Errorf("failed to decode number sets: %w", err)
	}
	return &r, nil
}

// GetResult retrieves a result by ID.
func (s *SQLiteStore) GetResult(ctx context.Context, resultID string) (*domain.RecommendationResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM recommendation_results WHERE result_id = ?`, resultID)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetResultByOrderID retrieves the single result of a paid order.
func (s *SQLiteStore) GetResultByOrderID(ctx context.Context, orderID string) (*domain.RecommendationResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM recommendation_results WHERE order_id = ?`, orderID)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRecentResults retrieves a user's most recent results, newest first.
func (s *SQLiteStore) GetRecentResults(ctx context.Context, userID string, limit int) ([]domain.RecommendationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM recommendation_results WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecommendationResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// --- Orders ---

// CreateOrder persists an order projection.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (order_id, user_id, amount, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.UserID, o.Amount, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, amount, status, created_at, updated_at FROM orders WHERE order_id = ?`,
		orderID).Scan(&o.OrderID, &o.UserID, &o.Amount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus updates an order's status.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		status, now, orderID)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
