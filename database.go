package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PilotRow holds the lifetime statistics of one display name
type PilotRow struct {
	Name      string
	Joins     int
	Deaths    int
	Shots     int
	HitsTaken int
	Playtime  float64 // seconds
	LastSeen  string  // RFC3339
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	Joins     int     `json:"joins"`
	Deaths    int     `json:"deaths"`
	Shots     int     `json:"shots"`
	HitsTaken int     `json:"hitsTaken"`
	Playtime  float64 `json:"playtime"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pilots (
		name TEXT PRIMARY KEY,
		joins INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		shots INTEGER NOT NULL DEFAULT 0,
		hits_taken INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0,
		last_seen TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		pilot TEXT,
		session_id TEXT,
		value REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events(event_type, created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// GetSetting returns a stored setting or "" if missing
func (db *DB) GetSetting(key string) string {
	var value string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetPilot returns the statistics for a display name, or nil if unknown
func (db *DB) GetPilot(name string) (*PilotRow, error) {
	row := db.conn.QueryRow(
		"SELECT name, joins, deaths, shots, hits_taken, playtime, last_seen FROM pilots WHERE name = ?",
		name,
	)
	p := &PilotRow{}
	err := row.Scan(&p.Name, &p.Joins, &p.Deaths, &p.Shots, &p.HitsTaken, &p.Playtime, &p.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetLeaderboard returns top pilots sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"deaths": "deaths", "shots": "shots", "joins": "joins",
		"playtime": "playtime", "hits": "hits_taken",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "playtime"
	}

	rows, err := db.conn.Query(`SELECT name, joins, deaths, shots, hits_taken, playtime
		FROM pilots ORDER BY `+col+` DESC, name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Joins, &e.Deaths, &e.Shots, &e.HitsTaken, &e.Playtime); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// pilotDelta returns the stat column an analytics event increments and by how much
func pilotDelta(evt AnalyticsEvent) (string, float64) {
	switch evt.Type {
	case EvtSessionStart:
		return "joins", 1
	case EvtSessionEnd:
		return "playtime", evt.Value
	case EvtPlayerDeath:
		return "deaths", 1
	case EvtPlayerShot:
		return "shots", 1
	case EvtPlayerHit:
		return "hits_taken", 1
	}
	return "", 0
}

// applyPilotEvent folds one event into the pilots table inside tx
func applyPilotEvent(tx *sql.Tx, evt AnalyticsEvent) error {
	col, delta := pilotDelta(evt)
	if col == "" || evt.Pilot == "" {
		return nil
	}
	if _, err := tx.Exec("INSERT INTO pilots (name) VALUES (?) ON CONFLICT(name) DO NOTHING", evt.Pilot); err != nil {
		return err
	}
	_, err := tx.Exec(
		"UPDATE pilots SET "+col+" = "+col+" + ?, last_seen = ? WHERE name = ?",
		delta, evt.Timestamp.UTC().Format(time.RFC3339), evt.Pilot,
	)
	return err
}
