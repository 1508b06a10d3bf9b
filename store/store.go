// Package store persists download history in a sqlite database. The resolution
// engine never touches it; the command layer records job status around each
// resolve/download cycle.
package store

import (
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusCancelled   DownloadStatus = "cancelled"
)

// Download is one history record, tracking a video from resolution through
// download completion or failure.
type Download struct {
	ID             string         `db:"id"`
	VideoID        string         `db:"video_id"`
	Title          string         `db:"title"`
	URL            string         `db:"url"`
	Platform       string         `db:"platform"`
	DownloadURL    string         `db:"download_url"`
	FilePath       sql.NullString `db:"file_path"`
	Status         DownloadStatus `db:"status"`
	Progress       int            `db:"progress"`
	FileSize       int64          `db:"file_size"`
	DownloadedSize int64          `db:"downloaded_size"`
	CreatedAt      time.Time      `db:"created_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
	ErrorMessage   sql.NullString `db:"error_message"`
}

// NewDownload creates a pending record for a URL about to be resolved.
func NewDownload(url string) *Download {
	return &Download{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

type Store struct {
	db *sqlx.DB
}

func New(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

func (s *Store) Migrate() error {
	log := zap.S().Named("store")
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite3.WithInstance(s.db.DB, &migratesqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch err {
	case nil:
		log.Debug("database migration complete")
	case migrate.ErrNoChange:
		log.Debug("no database migration required")
	default:
		return err
	}
	return nil
}

func (s *Store) Close() {
	_ = s.db.Close()
}

func (s *Store) ListAll() ([]Download, error) {
	var downloads []Download
	if err := s.db.Select(&downloads, `SELECT * FROM download ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return downloads, nil
}

func (s *Store) ListByStatus(status DownloadStatus) ([]Download, error) {
	var downloads []Download
	if err := s.db.Select(&downloads, `SELECT * FROM download WHERE status = ? ORDER BY created_at DESC`, status); err != nil {
		return nil, err
	}
	return downloads, nil
}

// GetByID returns (nil, nil) if the error is only that no such row exists.
func (s *Store) GetByID(id string) (*Download, error) {
	d := Download{}
	if err := s.db.Get(&d, `SELECT * FROM download WHERE id = ? LIMIT 1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		} else {
			return nil, err
		}
	} else {
		return &d, nil
	}
}

func (s *Store) Insert(d *Download) error {
	_, err := s.db.NamedExec(`
		INSERT INTO download (id, video_id, title, url, platform, download_url, file_path, status,
			progress, file_size, downloaded_size, created_at, completed_at, error_message)
		VALUES (:id, :video_id, :title, :url, :platform, :download_url, :file_path, :status,
			:progress, :file_size, :downloaded_size, :created_at, :completed_at, :error_message)`, d)
	return err
}

// Update will set all non-ID values in the database row identified by Download.ID.
func (s *Store) Update(d *Download) error {
	if res, err := s.db.NamedExec(`
		UPDATE download SET video_id = :video_id, title = :title, url = :url, platform = :platform,
			download_url = :download_url, file_path = :file_path, status = :status,
			progress = :progress, file_size = :file_size, downloaded_size = :downloaded_size,
			completed_at = :completed_at, error_message = :error_message
		WHERE id = :id`, d); err != nil {
		return err
	} else if count, err := res.RowsAffected(); err != nil {
		return err
	} else if count == 0 {
		return sql.ErrNoRows
	} else {
		return nil
	}
}

func (s *Store) DeleteByID(id string) error {
	_, err := s.db.Exec(`DELETE FROM download WHERE id = ?`, id)
	return err
}

func (s *Store) DeleteByStatus(status DownloadStatus) error {
	_, err := s.db.Exec(`DELETE FROM download WHERE status = ?`, status)
	return err
}
