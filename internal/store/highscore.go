package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// Highscore keeps the best score in the settings table.
type Highscore struct {
	db  *gorm.DB
	key string
}

func (s *Store) Highscore() *Highscore {
	return &Highscore{db: s.db, key: service.HighscoreKey}
}

func (h *Highscore) Highscore(ctx context.Context) (int, error) {
	return readSetting(h.db.WithContext(ctx), h.key)
}

func readSetting(db *gorm.DB, key string) (int, error) {
	var value int
	if err := db.Raw("SELECT value FROM settings WHERE key = ?", key).Scan(&value).Error; err != nil {
		return 0, errors.Wrapf(err, "read setting %s", key)
	}
	return value, nil
}

// Submit raises the stored highscore to score if it is higher. The read, the
// conditional write and the read-back share one transaction.
func (h *Highscore) Submit(ctx context.Context, score int) (best int, updated bool, err error) {
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := readSetting(tx, h.key)
		if err != nil {
			return err
		}

		res := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
			WHERE excluded.value > settings.value`, h.key, score)
		if res.Error != nil {
			return errors.Wrap(res.Error, "write highscore")
		}

		if best, err = readSetting(tx, h.key); err != nil {
			return err
		}
		updated = best > before
		return nil
	})
	return best, updated, err
}
