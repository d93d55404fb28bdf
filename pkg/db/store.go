package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store reads and writes translation requests and their stored parts.
type Store struct {
	DB      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{DB: db, dialect: dialect}
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error { return s.DB.Close() }

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ex DBExecutor) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateRequest inserts r and sets its ID. A zero DateTime is set to now.
func (s *Store) CreateRequest(ctx context.Context, r *TranslationRequest) (int64, error) {
	if strings.TrimSpace(r.InputLang) == "" || strings.TrimSpace(r.OutputLang) == "" {
		return 0, fmt.Errorf("request languages must be non-empty")
	}
	if r.DateTime.IsZero() {
		r.DateTime = time.Now().UTC()
	}
	var id int64
	err := s.DB.QueryRowContext(ctx, rebind(s.dialect,
		`INSERT INTO translation_request (ip_address, input_lang, input_text, output_lang, date_time)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		r.IPAddress, r.InputLang, r.InputText, r.OutputLang, r.DateTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert translation request: %w", err)
	}
	r.ID = id
	return id, nil
}

// GetRequest returns the request with the given id or ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, id int64) (*TranslationRequest, error) {
	var r TranslationRequest
	var ip sql.NullString
	err := s.DB.QueryRowContext(ctx, rebind(s.dialect,
		`SELECT id, ip_address, input_lang, input_text, output_lang, date_time
		 FROM translation_request WHERE id = ?`), id,
	).Scan(&r.ID, &ip, &r.InputLang, &r.InputText, &r.OutputLang, &r.DateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("translation request %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.IPAddress = ip.String
	return &r, nil
}

// ListRecentRequests returns up to limit requests, newest first.
func (s *Store) ListRecentRequests(ctx context.Context, limit int) ([]TranslationRequest, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, rebind(s.dialect,
		`SELECT id, ip_address, input_lang, input_text, output_lang, date_time
		 FROM translation_request ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TranslationRequest
	for rows.Next() {
		var r TranslationRequest
		var ip sql.NullString
		if err := rows.Scan(&r.ID, &ip, &r.InputLang, &r.InputText, &r.OutputLang, &r.DateTime); err != nil {
			return nil, err
		}
		r.IPAddress = ip.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSegments stores the parts of a translation in order; the ordinal of a
// part is its index in segments. Saving the same request again replaces the
// parts at the same ordinals.
func (s *Store) SaveSegments(ctx context.Context, ex DBExecutor, requestID int64, segments []string) error {
	if requestID <= 0 {
		return fmt.Errorf("requestID must be positive")
	}
	if ex == nil {
		ex = s.DB
	}
	query := rebind(s.dialect,
		`INSERT INTO translated_text (request_id, ordinal, output_text) VALUES (?, ?, ?)
		 ON CONFLICT(request_id, ordinal) DO UPDATE SET output_text = excluded.output_text`)
	for i, seg := range segments {
		if _, err := ex.ExecContext(ctx, query, requestID, i, seg); err != nil {
			return fmt.Errorf("insert segment %d of request %d: %w", i, requestID, err)
		}
	}
	return nil
}

// ListSegments returns the stored parts of a request ordered by ordinal.
func (s *Store) ListSegments(ctx context.Context, requestID int64) ([]TranslatedText, error) {
	rows, err := s.DB.QueryContext(ctx, rebind(s.dialect,
		`SELECT id, request_id, ordinal, output_text FROM translated_text
		 WHERE request_id = ? ORDER BY ordinal`), requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TranslatedText
	for rows.Next() {
		var t TranslatedText
		if err := rows.Scan(&t.ID, &t.RequestID, &t.Ordinal, &t.OutputText); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
