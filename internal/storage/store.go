// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists presets, chats, regex rules and quick commands in
// an embedded SQLite database.
//
// Records are stored as JSON documents with a few indexed columns pulled out
// for listing and the derived parent->children lookup. SQLite only supports
// one writer at a time, so the connection pool is pinned to a single
// connection.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDatabaseError wraps driver-level failures.
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS presets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id             TEXT PRIMARY KEY,
	character_id   TEXT NOT NULL DEFAULT '',
	parent_chat_id TEXT NOT NULL DEFAULT '',
	data           TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_parent ON chats(parent_chat_id);
CREATE INDEX IF NOT EXISTS idx_chats_character ON chats(character_id);

CREATE TABLE IF NOT EXISTS regex_rules (
	position INTEGER PRIMARY KEY,
	find     TEXT NOT NULL,
	replace  TEXT NOT NULL,
	notes    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS commands (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	notes    TEXT NOT NULL DEFAULT '',
	content  TEXT NOT NULL
);
`

// =============================================================================
// STORE
// =============================================================================

// Store is the embedded document store for all engine state.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// PRESETS
// =============================================================================

// SavePreset inserts or replaces a preset.
func (s *Store) SavePreset(p *model.Preset) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO presets (id, name, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, data=excluded.data, updated_at=excluded.updated_at
	`, p.ID, p.Name, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// LoadPreset retrieves a preset by id.
func (s *Store) LoadPreset(id string) (*model.Preset, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM presets WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	var p model.Preset
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPresets returns id/name pairs of all presets, most recently updated
// first.
func (s *Store) ListPresets() ([]PresetMeta, error) {
	rows, err := s.db.Query("SELECT id, name, updated_at FROM presets ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var metas []PresetMeta
	for rows.Next() {
		var meta PresetMeta
		var updated int64
		if err := rows.Scan(&meta.ID, &meta.Name, &updated); err != nil {
			return nil, err
		}
		meta.UpdatedAt = time.Unix(updated, 0)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// DeletePreset removes a preset by id.
func (s *Store) DeletePreset(id string) error {
	res, err := s.db.Exec("DELETE FROM presets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PresetMeta is lightweight preset metadata for listing.
type PresetMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// CHATS
// =============================================================================

// SaveChat inserts or replaces a chat.
func (s *Store) SaveChat(c *model.Chat) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO chats (id, character_id, parent_chat_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			character_id=excluded.character_id,
			parent_chat_id=excluded.parent_chat_id,
			data=excluded.data,
			updated_at=excluded.updated_at
	`, c.ID, c.CharacterID, c.ParentChatID, string(data), c.CreatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// LoadChat retrieves a chat by id.
func (s *Store) LoadChat(id string) (*model.Chat, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM chats WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	var c model.Chat
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChats returns all chats, most recently created first.
func (s *Store) ListChats() ([]*model.Chat, error) {
	return s.queryChats("SELECT data FROM chats ORDER BY created_at DESC")
}

// ChildrenOf returns the chats branched from the given parent, most recently
// created first. This is the derived children index of the parent-pointer
// tree.
func (s *Store) ChildrenOf(parentID string) ([]*model.Chat, error) {
	return s.queryChats("SELECT data FROM chats WHERE parent_chat_id = ? ORDER BY created_at DESC", parentID)
}

// DeleteChat removes a chat by id.
func (s *Store) DeleteChat(id string) error {
	res, err := s.db.Exec("DELETE FROM chats WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryChats(query string, args ...any) ([]*model.Chat, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var chats []*model.Chat
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var c model.Chat
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			continue // Skip corrupted rows
		}
		chats = append(chats, &c)
	}
	return chats, rows.Err()
}

// =============================================================================
// REGEX RULES
// =============================================================================

// SaveRules replaces the stored rule list with the given one, preserving
// list order. Callers validate rules before saving; invalid patterns must
// never reach the store.
func (s *Store) SaveRules(rules []model.RegexRule) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM regex_rules"); err != nil {
		return err
	}
	for i, r := range rules {
		if _, err := tx.Exec(
			"INSERT INTO regex_rules (position, find, replace, notes) VALUES (?, ?, ?, ?)",
			i, r.Find, r.Replace, r.Notes,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRules returns the stored rule list in order.
func (s *Store) LoadRules() ([]model.RegexRule, error) {
	rows, err := s.db.Query("SELECT find, replace, notes FROM regex_rules ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var rules []model.RegexRule
	for rows.Next() {
		var r model.RegexRule
		if err := rows.Scan(&r.Find, &r.Replace, &r.Notes); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// =============================================================================
// COMMANDS
// =============================================================================

// SaveCommands replaces the stored command list, preserving list order.
func (s *Store) SaveCommands(commands []model.Command) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM commands"); err != nil {
		return err
	}
	for i, c := range commands {
		if _, err := tx.Exec(
			"INSERT INTO commands (position, id, notes, content) VALUES (?, ?, ?, ?)",
			i, c.ID, c.Notes, c.Content,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCommands returns the stored command list in order.
func (s *Store) LoadCommands() ([]model.Command, error) {
	rows, err := s.db.Query("SELECT id, notes, content FROM commands ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var commands []model.Command
	for rows.Next() {
		var c model.Command
		if err := rows.Scan(&c.ID, &c.Notes, &c.Content); err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}
