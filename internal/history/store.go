package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/Hara602/avSentry/internal/model"
)

// Store 状态变化的持久化记录 (sqlite)
type Store struct {
	db *sql.DB
}

// OpenStore 打开数据库并初始化表结构
func OpenStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create database dir")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	schema := []string{`
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		device TEXT NOT NULL,
		active INTEGER NOT NULL
	);`,
		`CREATE INDEX IF NOT EXISTS events_ts ON events (ts);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to create table")
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Insert(ev model.HistoryEvent) error {
	active := 0
	if ev.Active {
		active = 1
	}
	_, err := s.db.Exec(
		"INSERT INTO events(ts, device, active) VALUES (?, ?, ?)",
		ev.Timestamp.UnixMilli(), string(ev.Class), active,
	)
	return errors.Wrap(err, "insert event")
}

// Recent 最近 limit 条记录，新的在前
func (s *Store) Recent(limit int) ([]model.HistoryEvent, error) {
	rows, err := s.db.Query(
		"SELECT ts, device, active FROM events ORDER BY ts DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []model.HistoryEvent
	for rows.Next() {
		var (
			ts     int64
			device string
			active int
		)
		if err := rows.Scan(&ts, &device, &active); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		events = append(events, model.HistoryEvent{
			Timestamp: time.UnixMilli(ts).UTC(),
			Class:     model.DeviceClass(device),
			Active:    active == 1,
		})
	}
	return events, errors.Wrap(rows.Err(), "iterate events")
}

func (s *Store) Close() error {
	return s.db.Close()
}
