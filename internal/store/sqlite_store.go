package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"hanzibee/internal/model"
)

const totalStarsKey = "total_stars"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetTotalStars() (int, error) {
	row := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, totalStarsKey)
	var raw string
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	stars, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return stars, nil
}

func (s *SQLiteStore) SetTotalStars(stars int) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		totalStarsKey,
		strconv.Itoa(stars),
	)
	return err
}

func (s *SQLiteStore) ListLearned() ([]model.LearnedCharacter, error) {
	rows, err := s.db.Query(`
		SELECT id, character, count, last_learned
		FROM learned
		ORDER BY last_learned DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.LearnedCharacter, 0)
	for rows.Next() {
		var learned model.LearnedCharacter
		var lastLearned string
		if err := rows.Scan(
			&learned.ID,
			&learned.Character,
			&learned.Count,
			&lastLearned,
		); err != nil {
			return nil, err
		}
		learned.LastLearned = fromTS(lastLearned)
		result = append(result, learned)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) SaveLearned(list []model.LearnedCharacter) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM learned`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, learned := range list {
		if _, err := tx.Exec(`
			INSERT INTO learned (id, character, count, last_learned)
			VALUES (?, ?, ?, ?)`,
			learned.ID,
			learned.Character,
			learned.Count,
			toTS(learned.LastLearned),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetProgress(characterID string) (model.LearningProgress, bool, error) {
	row := s.db.QueryRow(`
		SELECT character_id, completed, completed_at, last_learned, stars_earned
		FROM progress
		WHERE character_id = ?`,
		characterID,
	)
	record, err := scanProgress(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LearningProgress{}, false, nil
	}
	if err != nil {
		return model.LearningProgress{}, false, err
	}
	return record, true, nil
}

func (s *SQLiteStore) ListProgress() (map[string]model.LearningProgress, error) {
	rows, err := s.db.Query(`
		SELECT character_id, completed, completed_at, last_learned, stars_earned
		FROM progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]model.LearningProgress)
	for rows.Next() {
		record, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		result[record.CharacterID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) SaveProgress(record model.LearningProgress) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO progress
		(character_id, completed, completed_at, last_learned, stars_earned)
		VALUES (?, ?, ?, ?, ?)`,
		record.CharacterID,
		boolToInt(record.Completed),
		nullableTS(record.CompletedAt),
		nullableTS(record.LastLearned),
		record.StarsEarned,
	)
	return err
}

func scanProgress(scan func(...any) error) (model.LearningProgress, error) {
	var record model.LearningProgress
	var completed int
	var completedAt sql.NullString
	var lastLearned sql.NullString
	if err := scan(
		&record.CharacterID,
		&completed,
		&completedAt,
		&lastLearned,
		&record.StarsEarned,
	); err != nil {
		return model.LearningProgress{}, err
	}
	record.Completed = intToBool(completed)
	if completedAt.Valid && completedAt.String != "" {
		record.CompletedAt = fromTS(completedAt.String)
	}
	if lastLearned.Valid && lastLearned.String != "" {
		record.LastLearned = fromTS(lastLearned.String)
	}
	return record, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS learned (
			id TEXT PRIMARY KEY,
			character TEXT NOT NULL,
			count INTEGER NOT NULL,
			last_learned TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS progress (
			character_id TEXT PRIMARY KEY,
			completed INTEGER NOT NULL,
			completed_at TEXT,
			last_learned TEXT,
			stars_earned INTEGER NOT NULL
		);
	`)
	return err
}

func toTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTS(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return toTS(t)
}

func fromTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func intToBool(v int) bool {
	return v != 0
}
