// Package history keeps a local ledger of renderer launches in SQLite.
package history

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one launch of a renderer script.
type Run struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Script  string `gorm:"size:255;not null"`
	Command string `gorm:"not null"`
	WorkDir string
	Source  string
	Model   string

	StartedAt  time.Time `gorm:"index;not null"`
	FinishedAt *time.Time
	ExitCode   *int
	Error      string
}

// Duration is zero while the run is in progress.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}

// Store reads and writes runs.
type Store struct {
	db *gorm.DB
}

// Open opens, creating it if needed, the ledger database at path.
func Open(path string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "creating history directory")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening history database %s", path)
	}

	err = db.AutoMigrate(&Run{})
	if err != nil {
		return nil, errors.Wrap(err, "migrating history database")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "getting history connection")
	}

	return sqlDB.Close()
}

// Start records a run that just began. An id and start time are assigned when missing.
func (s *Store) Start(run *Run) error {
	if run.Id == uuid.Nil {
		run.Id = uuid.New()
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	result := s.db.Create(run)
	if result.Error != nil {
		return errors.Wrap(result.Error, "recording run")
	}

	return nil
}

// Finish stores the outcome of run id.
func (s *Store) Finish(id uuid.UUID, exitCode int, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	result := s.db.Model(&Run{}).Where("id = ?", id).Updates(map[string]any{
		"finished_at": time.Now(),
		"exit_code":   exitCode,
		"error":       errText,
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "updating run")
	}

	if result.RowsAffected == 0 {
		return errors.Wrap(ErrRunNotFound, id.String())
	}

	return nil
}

// Get returns run id.
func (s *Store) Get(id uuid.UUID) (*Run, error) {
	var run Run

	result := s.db.First(&run, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrRunNotFound, id.String())
	}

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "reading run")
	}

	return &run, nil
}

// List returns the most recent runs first. A limit <= 0 returns every run.
func (s *Store) List(limit int) ([]Run, error) {
	var runs []Run

	query := s.db.Order("started_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Find(&runs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "listing runs")
	}

	return runs, nil
}
