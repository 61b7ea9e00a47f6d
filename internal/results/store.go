package results

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/saveenergy/qlogstat/internal/logging"
	"github.com/saveenergy/qlogstat/pkg/types"
)

const (
	DefaultRetention = 90 * 24 * time.Hour
	cleanupInterval  = 1 * time.Hour
)

var log = logging.NewLogger("results")

// Record is one saved trace report.
type Record struct {
	ID         string            `json:"id"`
	SourcePath string            `json:"source_path"`
	Report     types.TraceReport `json:"report"`
	CreatedAt  time.Time         `json:"created_at"`
}

type Store struct {
	db         *sql.DB
	maxResults int
	retention  time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// New opens (creating if needed) the history database at dbPath, applies
// retention and the row cap, and keeps doing so hourly until Close.
func New(dbPath string, maxResults int, retention time.Duration) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(3)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// modernc.org/sqlite requires explicit PRAGMAs (not query-string params)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{
		db:         db,
		maxResults: maxResults,
		retention:  retention,
		stopCh:     make(chan struct{}),
	}

	s.cleanup()

	s.wg.Add(1)
	go s.cleanupLoop()

	return s, nil
}

func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if err := s.db.Close(); err != nil {
			log.Warn("close failed", logging.Field{Key: "error", Value: err})
		}
	})
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS trace_reports (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		trace_index INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		grade TEXT NOT NULL DEFAULT '',
		rtt_mean_ms REAL NOT NULL DEFAULT 0,
		rtt_p99_ms REAL NOT NULL DEFAULT 0,
		loss_percent REAL NOT NULL DEFAULT 0,
		bytes_sent INTEGER NOT NULL DEFAULT 0,
		bytes_received INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_trace_reports_created_at ON trace_reports(created_at)`)
	return err
}

// Save stores report under a fresh id and returns the id. The summary
// columns duplicate parts of report_json so history can be listed and
// filtered without decoding.
func (s *Store) Save(sourcePath string, report types.TraceReport) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	grade := ""
	if report.Interpretation != nil {
		grade = report.Interpretation.Grade
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO trace_reports (id, source_path, trace_index, title, grade,
			rtt_mean_ms, rtt_p99_ms, loss_percent, bytes_sent, bytes_received,
			report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sourcePath, report.TraceIndex, report.Title, grade,
		report.SmoothedRTTMs.Mean, report.SmoothedRTTMs.P99, report.Loss.LossPercent,
		int64(report.Traffic.BytesSent), int64(report.Traffic.BytesReceived),
		string(payload), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

// Get returns the record with id, or nil, nil when there is none.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT id, source_path, report_json, created_at
		FROM trace_reports WHERE id = ?`, id,
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	return r, nil
}

// List returns up to limit records, newest first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.Query(
		`SELECT id, source_path, report_json, created_at
		FROM trace_reports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r       Record
		payload string
	)
	if err := row.Scan(&r.ID, &r.SourcePath, &payload, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &r.Report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", r.ID, err)
	}
	return &r, nil
}

func (s *Store) cleanup() {
	cutoff := time.Now().UTC().Add(-s.retention)
	res, err := s.db.Exec(`DELETE FROM trace_reports WHERE created_at < ?`, cutoff)
	if err != nil {
		log.Warn("cleanup (age) failed", logging.Field{Key: "error", Value: err})
	} else if n, _ := res.RowsAffected(); n > 0 {
		log.Info("cleanup: removed expired",
			logging.Field{Key: "count", Value: n})
	}

	// Trim to max count, keeping newest
	if s.maxResults > 0 {
		res, err = s.db.Exec(
			`DELETE FROM trace_reports WHERE id NOT IN (
				SELECT id FROM trace_reports ORDER BY created_at DESC, rowid DESC LIMIT ?
			)`, s.maxResults)
		if err != nil {
			log.Warn("cleanup (count) failed", logging.Field{Key: "error", Value: err})
		} else if n, _ := res.RowsAffected(); n > 0 {
			log.Info("cleanup: trimmed to max",
				logging.Field{Key: "removed", Value: n},
				logging.Field{Key: "max", Value: s.maxResults})
		}
	}
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}
