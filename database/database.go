package database

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Database is a SQLite-backed nowplaying_dl.HistoryStore, one row per record.
type Database struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

var _ nowplaying_dl.HistoryStore = &Database{}

// NewDatabase opens the database at path and brings its schema up to date.
func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection, so that ":memory:" databases are shared
	db.SetMaxOpenConns(1)
	d := &Database{db: db, log: zap.S().Named("database")}
	if err := d.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

func (d *Database) Migrate() error {
	d.log.Debug("running database migrations")
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(d.db.DB, &sqlite3.Config{})
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
		d.log.Info("database migration complete")
	case migrate.ErrNoChange:
		d.log.Debug("no database migration required")
	default:
		return err
	}
	return nil
}

type historyRow struct {
	Position int `db:"position"`
	nowplaying_dl.DownloadRecord
}

func (d *Database) Load() ([]nowplaying_dl.DownloadRecord, error) {
	var rows []historyRow
	if err := d.db.Select(&rows, `SELECT * FROM download_history ORDER BY position`); err != nil {
		return nil, err
	}
	records := make([]nowplaying_dl.DownloadRecord, 0, len(rows))
	for _, row := range rows {
		row.DownloadedAt = row.DownloadedAt.UTC()
		records = append(records, row.DownloadRecord)
	}
	return records, nil
}

// Save replaces the whole log in one transaction.
func (d *Database) Save(records []nowplaying_dl.DownloadRecord) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM download_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	for i, record := range records {
		row := historyRow{Position: i, DownloadRecord: record}
		if _, err := tx.NamedExec(
			`INSERT INTO download_history (position, id, title, artist, url, file_name, downloaded_at)
			VALUES (:position, :id, :title, :artist, :url, :file_name, :downloaded_at)`,
			row,
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", record.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (d *Database) Clear() error {
	_, err := d.db.Exec(`DELETE FROM download_history`)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}
