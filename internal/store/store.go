package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// SchemaVersion gates reseeding: a database written with another version has
// its question tables dropped, recreated and seeded again.
const SchemaVersion = 2

type Config struct {
	Path     string
	SeedFile string
	Debug    bool
}

// Store is the question store. One instance is opened at startup and shared
// for the life of the process.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens the database, creates the schema and seeds it if needed.
// Any failure is fatal and reported as service.ErrStoreInit; no half-built
// store is returned.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	seed, err := LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, errors.Wrap(service.ErrStoreInit, err.Error())
	}

	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrapf(service.ErrStoreInit, "open %s: %v", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrapf(service.ErrStoreInit, "open %s: %v", cfg.Path, err)
	}
	// SQLite serializes writers anyway; one connection keeps pragmas and
	// transactions on the same handle.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(ctx, seed); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(service.ErrStoreInit, err.Error())
	}

	log.Info("question store ready", zap.String("path", cfg.Path), zap.Int("schema_version", SchemaVersion))
	return s, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		mixed INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		option1 TEXT NOT NULL,
		option2 TEXT NOT NULL,
		option3 TEXT NOT NULL,
		answer_nr INTEGER NOT NULL CHECK (answer_nr BETWEEN 1 AND 3),
		difficulty TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		FOREIGN KEY (category_id) REFERENCES categories (id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_difficulty_category ON questions (difficulty, category_id)`,
	// settings survives schema bumps; it holds the highscore.
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

func (s *Store) migrate(ctx context.Context, seed *Seed) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var version int
		if err := tx.Raw("PRAGMA user_version").Scan(&version).Error; err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}

		if version != 0 && version != SchemaVersion {
			s.log.Info("upgrading question store",
				zap.Int("from", version),
				zap.Int("to", SchemaVersion))
			for _, table := range []string{"questions", "categories"} {
				if err := tx.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
					return fmt.Errorf("drop %s: %w", table, err)
				}
			}
		}

		for _, stmt := range schema {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}

		var count int64
		if err := tx.Model(&categoryRow{}).Count(&count).Error; err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count == 0 {
			if err := seedTx(tx, seed); err != nil {
				return err
			}
			s.log.Info("question store seeded",
				zap.Int("categories", len(seed.Categories)),
				zap.Int("questions", len(seed.Questions)))
		}

		if err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)).Error; err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return nil
	})
}

func seedTx(tx *gorm.DB, seed *Seed) error {
	categories := make([]categoryRow, 0, len(seed.Categories))
	for _, c := range seed.Categories {
		categories = append(categories, toCategoryRow(c))
	}
	if err := tx.Create(&categories).Error; err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	questions := seed.questions()
	if len(questions) == 0 {
		return nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, toQuestionRow(q))
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	return nil
}

// ListCategories returns all categories in insertion order.
func (s *Store) ListCategories(ctx context.Context) ([]service.Category, error) {
	var rows []categoryRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list categories")
	}

	out := make([]service.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.category())
	}
	return out, nil
}

// ListQuestions returns the questions of every category with the given difficulty.
func (s *Store) ListQuestions(ctx context.Context, difficulty service.Difficulty) ([]service.Question, error) {
	var rows []questionRow
	err := s.db.WithContext(ctx).
		Where("difficulty = ?", string(difficulty)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}
	return mapQuestions(rows)
}

func (s *Store) ListQuestionsByCategory(ctx context.Context, categoryID int, difficulty service.Difficulty) ([]service.Question, error) {
	var rows []questionRow
	err := s.db.WithContext(ctx).
		Where("category_id = ? AND difficulty = ?", categoryID, string(difficulty)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list questions of category %d", categoryID)
	}
	return mapQuestions(rows)
}

// AddCategory inserts c and returns it with its assigned id. Content
// management only; gameplay never writes.
func (s *Store) AddCategory(ctx context.Context, c service.Category) (service.Category, error) {
	out, err := s.AddCategories(ctx, []service.Category{c})
	if err != nil {
		return service.Category{}, err
	}
	return out[0], nil
}

func (s *Store) AddCategories(ctx context.Context, categories []service.Category) ([]service.Category, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	rows := make([]categoryRow, 0, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, errors.New("category name cannot be empty")
		}
		rows = append(rows, toCategoryRow(c))
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "add categories")
	}

	out := make([]service.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.category())
	}
	return out, nil
}

func (s *Store) AddQuestion(ctx context.Context, q service.Question) (service.Question, error) {
	out, err := s.AddQuestions(ctx, []service.Question{q})
	if err != nil {
		return service.Question{}, err
	}
	return out[0], nil
}

// AddQuestions inserts all questions or none. A question referring to an
// unknown category is rejected by the foreign key.
func (s *Store) AddQuestions(ctx context.Context, questions []service.Question) ([]service.Question, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, errors.Wrapf(err, "question %d", i)
		}
		rows = append(rows, toQuestionRow(q))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "add questions")
	}
	return mapQuestions(rows)
}

func validateQuestion(q service.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text cannot be empty")
	}
	if !q.Answer.Valid() {
		return errors.Errorf("answer must be 1, 2 or 3, got %d", q.Answer)
	}
	if !q.Difficulty.Valid() {
		return errors.Errorf("unknown difficulty %q", q.Difficulty)
	}
	return nil
}
