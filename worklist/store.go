package worklist

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store persists worklist entries in SQLite. Writes go through the engine's
// transactions; readers in WAL mode keep seeing the last committed snapshot
// while a full refresh is rewriting the table.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates it.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open worklist database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the worklist schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate worklist schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Upsert inserts e, or overwrites the row holding the same accession number,
// and returns the row id. e.ID is set to that id.
func (s *Store) Upsert(ctx context.Context, e *Entry) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = upsert(tx, e)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func upsert(tx *gorm.DB, e *Entry) (int64, error) {
	if e.AccessionNumber == "" {
		return 0, errors.New("worklist: entry has no accession number")
	}

	row := *e
	row.ID = 0
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "accession_number"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to upsert worklist entry %s: %w", e.AccessionNumber, err)
	}

	// the conflict path does not reliably report the existing id
	var stored Entry
	if err := tx.Select("id", "created_at", "updated_at").
		Where("accession_number = ?", e.AccessionNumber).
		Take(&stored).Error; err != nil {
		return 0, fmt.Errorf("failed to read back worklist entry %s: %w", e.AccessionNumber, err)
	}

	e.ID = stored.ID
	e.CreatedAt = stored.CreatedAt
	e.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

// GetAll returns every entry in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list worklist entries: %w", err)
	}
	return entries, nil
}

// GetByID returns the entry with the given id or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	var e Entry
	if err := s.db.WithContext(ctx).Take(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get worklist entry %d: %w", id, err)
	}
	return &e, nil
}

// UpdateByID replaces every field of the entry with the given id except the
// id itself and its creation time. It returns ErrDuplicateAccession when the
// new accession number belongs to another entry.
func (s *Store) UpdateByID(ctx context.Context, id int64, e Entry) (*Entry, error) {
	var updated Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		e.ID = updated.ID
		e.CreatedAt = updated.CreatedAt
		if err := tx.Save(&e).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateAccession
			}
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateAccession) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update worklist entry %d: %w", id, err)
	}
	return &updated, nil
}

// DeleteByID removes the entry and reports whether a row was deleted.
func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&Entry{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete worklist entry %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ClearAll removes every entry.
func (s *Store) ClearAll(ctx context.Context) error {
	return clearAll(s.db.WithContext(ctx))
}

func clearAll(tx *gorm.DB) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to clear worklist: %w", err)
	}
	return nil
}

// ReplaceAll clears the store and upserts entries in one transaction. On
// error nothing is changed.
func (s *Store) ReplaceAll(ctx context.Context, entries []Entry) (int, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearAll(tx); err != nil {
			return err
		}
		for i := range entries {
			if _, err := upsert(tx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Entry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count worklist entries: %w", err)
	}
	return n, nil
}
