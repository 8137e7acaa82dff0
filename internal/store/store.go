// Package store implements the write-through SQLite persistence layer:
// rooms/members/gameState tables, best-effort save, and boot-time recovery
// with stale-room cleanup.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"yaniv/internal/logging"
)

const (
	playingMaxAge = 7 * 24 * time.Hour
	waitingMaxAge = 12 * time.Hour
)

var log = logging.ForComponent("store")

// MemberRecord is one row of the members table.
type MemberRecord struct {
	Pid  string
	Name string
	IsAI bool
}

// RoomRecord is the full persisted shape of a room.
type RoomRecord struct {
	Code      string
	Status    string
	Winner    string
	CreatedAt time.Time

	Members []MemberRecord

	// GameJSON is nil when the room has no game yet (still waiting).
	GameJSON             json.RawMessage
	LastRound            json.RawMessage
	LastTurn             json.RawMessage
	RoundBannerTurnsLeft int
	Options              json.RawMessage
	UpdatedAt            time.Time
}

// Store wraps a *sql.DB. A nil Store is valid and represents degraded mode:
// every method becomes a no-op.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and runs
// migrations. If path is empty or the connection fails, Open returns a nil
// *Store and logs once — callers should treat this as success, not an
// error to propagate.
func Open(path string) *Store {
	if path == "" {
		log.Printf("no DATABASE_URL set, running in degraded (in-memory only) mode")
		return nil
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Printf("degraded mode: failed to open database: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		log.Printf("degraded mode: failed to ping database: %v", err)
		return nil
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		log.Printf("degraded mode: failed to migrate database: %v", err)
		return nil
	}
	return s
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			winner TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			code TEXT NOT NULL REFERENCES rooms(code),
			pid TEXT NOT NULL,
			name TEXT NOT NULL,
			is_ai BOOLEAN NOT NULL,
			PRIMARY KEY (code, pid)
		)`,
		`CREATE TABLE IF NOT EXISTS game_state (
			code TEXT PRIMARY KEY REFERENCES rooms(code),
			game_json TEXT,
			last_round TEXT,
			last_turn TEXT,
			round_banner_turns_left INTEGER NOT NULL DEFAULT 0,
			options TEXT,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveRoom upserts rooms, upserts members (never removing existing rows —
// member removal only happens via a room delete cascade), and upserts
// gameState with the full serialized game. On a
// nil Store this is a no-op: persistence is best-effort and the in-memory
// room is always authoritative.
func (s *Store) SaveRoom(rec RoomRecord) {
	if s == nil {
		return
	}
	if err := s.saveRoom(rec); err != nil {
		log.Printf("room %s: persistence save failed: %v", rec.Code, err)
	}
}

func (s *Store) saveRoom(rec RoomRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO rooms (code, status, winner, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET status=excluded.status, winner=excluded.winner`,
		rec.Code, rec.Status, nullableString(rec.Winner), rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}

	for _, m := range rec.Members {
		if _, err := tx.Exec(
			`INSERT INTO members (code, pid, name, is_ai) VALUES (?, ?, ?, ?)
			 ON CONFLICT(code, pid) DO UPDATE SET name=excluded.name, is_ai=excluded.is_ai`,
			rec.Code, m.Pid, m.Name, m.IsAI,
		); err != nil {
			return fmt.Errorf("upsert member: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO game_state (code, game_json, last_round, last_turn, round_banner_turns_left, options, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET game_json=excluded.game_json, last_round=excluded.last_round,
		   last_turn=excluded.last_turn, round_banner_turns_left=excluded.round_banner_turns_left,
		   options=excluded.options, updated_at=excluded.updated_at`,
		rec.Code, nullableJSON(rec.GameJSON), nullableJSON(rec.LastRound), nullableJSON(rec.LastTurn),
		rec.RoundBannerTurnsLeft, nullableJSON(rec.Options), rec.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert game state: %w", err)
	}

	return tx.Commit()
}

// DeleteRoom removes a room and its members/game state rows.
func (s *Store) DeleteRoom(code string) {
	if s == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM game_state WHERE code = ?`, code); err != nil {
		log.Printf("room %s: delete game_state failed: %v", code, err)
	}
	if _, err := s.db.Exec(`DELETE FROM members WHERE code = ?`, code); err != nil {
		log.Printf("room %s: delete members failed: %v", code, err)
	}
	if _, err := s.db.Exec(`DELETE FROM rooms WHERE code = ?`, code); err != nil {
		log.Printf("room %s: delete room failed: %v", code, err)
	}
}

// LoadRooms performs boot-time recovery: ages out old rooms,
// then returns everything that remains.
func (s *Store) LoadRooms() ([]RoomRecord, error) {
	if s == nil {
		return nil, nil
	}
	now := time.Now()
	if _, err := s.db.Exec(
		`UPDATE rooms SET status = 'finished' WHERE status = 'playing' AND created_at < ?`,
		now.Add(-playingMaxAge),
	); err != nil {
		return nil, fmt.Errorf("age out playing rooms: %w", err)
	}
	staleWaiting, err := s.db.Query(`SELECT code FROM rooms WHERE status = 'waiting' AND created_at < ?`, now.Add(-waitingMaxAge))
	if err != nil {
		return nil, fmt.Errorf("query stale waiting rooms: %w", err)
	}
	var staleCodes []string
	for staleWaiting.Next() {
		var code string
		if err := staleWaiting.Scan(&code); err != nil {
			staleWaiting.Close()
			return nil, err
		}
		staleCodes = append(staleCodes, code)
	}
	staleWaiting.Close()
	for _, code := range staleCodes {
		s.DeleteRoom(code)
	}

	rows, err := s.db.Query(`SELECT code, status, winner, created_at FROM rooms`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var records []RoomRecord
	for rows.Next() {
		var rec RoomRecord
		var winner sql.NullString
		if err := rows.Scan(&rec.Code, &rec.Status, &winner, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Winner = winner.String
		records = append(records, rec)
	}

	for i := range records {
		if err := s.fillMembers(&records[i]); err != nil {
			return nil, err
		}
		if err := s.fillGameState(&records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) fillMembers(rec *RoomRecord) error {
	rows, err := s.db.Query(`SELECT pid, name, is_ai FROM members WHERE code = ?`, rec.Code)
	if err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m MemberRecord
		if err := rows.Scan(&m.Pid, &m.Name, &m.IsAI); err != nil {
			return err
		}
		rec.Members = append(rec.Members, m)
	}
	return nil
}

func (s *Store) fillGameState(rec *RoomRecord) error {
	row := s.db.QueryRow(
		`SELECT game_json, last_round, last_turn, round_banner_turns_left, options, updated_at
		 FROM game_state WHERE code = ?`, rec.Code,
	)
	var gameJSON, lastRound, lastTurn, options sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&gameJSON, &lastRound, &lastTurn, &rec.RoundBannerTurnsLeft, &options, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("query game state: %w", err)
	}
	rec.GameJSON = rawOrNil(gameJSON)
	rec.LastRound = rawOrNil(lastRound)
	rec.LastTurn = rawOrNil(lastTurn)
	rec.Options = rawOrNil(options)
	rec.UpdatedAt = updatedAt.Time
	return nil
}

func rawOrNil(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
