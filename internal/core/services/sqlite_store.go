// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services. This file holds SQLiteProjectStore, a single file store
// for one-node deployments built on the pure Go modernc.org/sqlite driver.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-video-wizard/internal/core/model"
	"github.com/jaycherian/gcp-go-video-wizard/internal/core/scenegroup"
	_ "modernc.org/sqlite"
)

// sqliteMigrations are applied in order; the index + 1 is the schema version.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL,
		topic          TEXT NOT NULL DEFAULT '',
		character      TEXT NOT NULL DEFAULT '',
		stage          TEXT NOT NULL,
		location_count INTEGER,
		scenes         TEXT NOT NULL DEFAULT '[]',
		scene_group    TEXT NOT NULL DEFAULT '[]',
		create_date    INTEGER NOT NULL,
		update_date    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS projects_update_date ON projects (update_date DESC)`,
}

// SQLiteProjectStore keeps each project as one row; scenes and scene_group
// are JSON columns.
type SQLiteProjectStore struct {
	DB *sql.DB
}

// OpenSQLiteProjectStore opens (creating if needed) the database at path and
// migrates it to the latest schema. Use ":memory:" for a throwaway store.
//
// Inputs:
//   - ctx: Bounds the migration.
//   - path: The database file.
//
// Outputs:
//   - *SQLiteProjectStore: The ready store.
//   - error: If the file cannot be opened or migrated.
func OpenSQLiteProjectStore(ctx context.Context, path string) (*SQLiteProjectStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// One writer at a time; this also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteProjectStore{DB: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteProjectStore) Close() error {
	return s.DB.Close()
}

func (s *SQLiteProjectStore) migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var current int
	if err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}
	for i := current; i < len(sqliteMigrations); i++ {
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqliteMigrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Debug("applied sqlite migration", "version", i+1)
	}
	return nil
}

const sqliteProjectColumns = `id, title, topic, character, stage, location_count, scenes, scene_group, create_date, update_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProject(row rowScanner) (*model.Project, error) {
	var (
		p             model.Project
		locationCount sql.NullInt64
		scenes        string
		sceneGroup    string
		created       int64
		updated       int64
	)
	if err := row.Scan(&p.Id, &p.Title, &p.Topic, &p.Character, &p.Stage, &locationCount, &scenes, &sceneGroup, &created, &updated); err != nil {
		return nil, err
	}
	if locationCount.Valid {
		n := int(locationCount.Int64)
		p.LocationCount = &n
	}
	if err := json.Unmarshal([]byte(scenes), &p.Scenes); err != nil {
		return nil, fmt.Errorf("decoding scenes of project %s: %w", p.Id, err)
	}
	p.SceneGroup = scenegroup.DecodeRecords([]byte(sceneGroup))
	p.CreateDate = time.Unix(0, created).UTC()
	p.UpdateDate = time.Unix(0, updated).UTC()
	return &p, nil
}

func (s *SQLiteProjectStore) Get(ctx context.Context, id string) (*model.Project, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+sqliteProjectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanSQLiteProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLiteProjectStore) Create(ctx context.Context, project *model.Project) error {
	scenes, err := json.Marshal(project.Scenes)
	if err != nil {
		return err
	}
	groups, err := json.Marshal(project.SceneGroup)
	if err != nil {
		return err
	}
	var locationCount sql.NullInt64
	if project.LocationCount != nil {
		locationCount = sql.NullInt64{Int64: int64(*project.LocationCount), Valid: true}
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO projects (`+sqliteProjectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.Id, project.Title, project.Topic, project.Character, project.Stage, locationCount,
		string(scenes), string(groups), project.CreateDate.UnixNano(), project.UpdateDate.UnixNano())
	if err != nil {
		return fmt.Errorf("creating project %s: %w", project.Id, err)
	}
	return nil
}

func (s *SQLiteProjectStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return nil
}

func (s *SQLiteProjectStore) UpdateSceneGroup(ctx context.Context, id string, groups []scenegroup.Record) error {
	data, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return s.exec(ctx, id, `UPDATE projects SET scene_group = ?, update_date = ? WHERE id = ?`,
		string(data), time.Now().UnixNano(), id)
}

func (s *SQLiteProjectStore) UpdateLocationCount(ctx context.Context, id string, count *int) error {
	var locationCount sql.NullInt64
	if count != nil {
		locationCount = sql.NullInt64{Int64: int64(*count), Valid: true}
	}
	return s.exec(ctx, id, `UPDATE projects SET location_count = ?, update_date = ? WHERE id = ?`,
		locationCount, time.Now().UnixNano(), id)
}

// UpdateScene rewrites the scenes column inside a transaction.
func (s *SQLiteProjectStore) UpdateScene(ctx context.Context, id string, scene *model.Scene) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT scenes FROM projects WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return err
	}
	var scenes []*model.Scene
	if err := json.Unmarshal([]byte(raw), &scenes); err != nil {
		return fmt.Errorf("decoding scenes of project %s: %w", id, err)
	}
	found := false
	for i, existing := range scenes {
		if existing != nil && existing.Id.Equal(scene.Id) {
			scenes[i] = scene
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s in project %s", ErrSceneNotFound, scene.Id, id)
	}
	data, err := json.Marshal(scenes)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET scenes = ?, update_date = ? WHERE id = ?`,
		string(data), time.Now().UnixNano(), id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteProjectStore) List(ctx context.Context, limit int) ([]*model.Project, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+sqliteProjectColumns+` FROM projects ORDER BY update_date DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Project, 0)
	for rows.Next() {
		p, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
