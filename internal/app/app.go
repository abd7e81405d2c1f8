package app

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/PoluyanbIch/GoQuiz/internal/cache"
	"github.com/PoluyanbIch/GoQuiz/internal/config"
	"github.com/PoluyanbIch/GoQuiz/internal/service"
	"github.com/PoluyanbIch/GoQuiz/internal/store"
)

// App holds the process-wide handles. It is built once at startup and passed
// to the front ends.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Store    *store.Store
	Launcher *service.Launcher
	Results  *service.Results

	redis *cache.RedisClient
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	st, err := store.Open(ctx, store.Config{
		Path:     cfg.Database.Path,
		SeedFile: cfg.Database.SeedFile,
		Debug:    cfg.Database.Debug,
	}, log.Named("store"))
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Store: st}

	if cfg.UsesRedis() {
		a.redis, err = cache.NewRedisClient(cache.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			SnapshotTTL: cfg.Redis.SnapshotTTL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	var highscores service.HighscoreStore
	switch cfg.Highscore.Backend {
	case config.BackendMemory:
		highscores = service.NewMemoryHighscoreStore()
	case config.BackendRedis:
		highscores = a.redis.Highscore(cfg.Redis.KeyPrefix)
	default:
		highscores = st.Highscore()
	}

	var snapshots service.SnapshotStore
	switch cfg.Snapshot.Backend {
	case config.BackendFile:
		if snapshots, err = service.NewFileSnapshotStore(cfg.Snapshot.Dir); err != nil {
			a.Close()
			return nil, errors.Wrap(err, "snapshot store")
		}
	case config.BackendRedis:
		snapshots = a.redis.Snapshots(cfg.Redis.KeyPrefix)
	}

	a.Launcher = service.NewLauncher(st, snapshots, service.LauncherConfig{
		MixedCategoryID: cfg.Quiz.MixedCategoryID,
		MaxQuestions:    cfg.Quiz.MaxQuestions,
	}, log.Named("launcher"))
	a.Results = service.NewResults(highscores, log.Named("results"))

	log.Info("quiz ready",
		zap.String("highscore_backend", cfg.Highscore.Backend),
		zap.String("snapshot_backend", cfg.Snapshot.Backend))
	return a, nil
}

// RunnerOptions are the countdown settings shared by every front end.
func (a *App) RunnerOptions() []service.RunnerOption {
	return []service.RunnerOption{
		service.WithTickInterval(a.Config.Quiz.TickInterval),
		service.WithLogger(a.Log.Named("runner")),
	}
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("closing redis", zap.Error(err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("closing store", zap.Error(err))
		}
	}
}
