package store

import (
	"context"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jyra/internal/apperrors"
)

// DefaultPoolSize is the fixed connection-pool size Open defaults to.
const DefaultPoolSize = 5

// Store is the single owner of row lifetimes. In-memory objects it returns
// are immutable snapshots; mutations always go back through a Store method.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	// inflight tracks operations currently using the pool so Optimize can
	// quiesce it with an explicit drain handshake instead of a re-entrant
	// loop.
	inflight sync.WaitGroup
	quiesce  chan struct{} // closed while a quiesce is in progress
	mu       sync.Mutex
}

// Open creates a Store backed by path, applying the fixed-size connection
// pool and running AutoMigrate.
func Open(path string, logger *zap.Logger) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, "open database", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConnection, "obtain sql.DB", err)
	}
	sqlDB.SetMaxOpenConns(DefaultPoolSize)
	sqlDB.SetMaxIdleConns(DefaultPoolSize)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Store{db: gdb, logger: logger}
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntegrity, "auto-migrate schema", err)
	}
	return s, nil
}

// acquire marks the start of an operation against the pool; it blocks while
// a quiesce (optimize) is in progress, mirroring "acquire blocks callers
// when exhausted" for the quiesce case specifically.
func (s *Store) acquire() {
	s.mu.Lock()
	ch := s.quiesce
	s.mu.Unlock()
	if ch != nil {
		<-ch
	}
	s.inflight.Add(1)
}

func (s *Store) release() { s.inflight.Done() }

// withTx runs fn inside an implicit transaction; failures roll back. Every
// Store operation runs inside one of these.
func (s *Store) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.acquire()
	defer s.release()

	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	if ae, ok := err.(*apperrors.AppError); ok {
		return ae
	}
	return apperrors.Wrap(apperrors.KindQuery, "transaction failed", err)
}

// Optimize compacts storage and refreshes query statistics. It requires
// quiescing the pool first: new operations block on acquire() until
// Optimize returns.
func (s *Store) Optimize(ctx context.Context) error {
	s.mu.Lock()
	gate := make(chan struct{})
	s.quiesce = gate
	s.mu.Unlock()

	s.inflight.Wait() // drain handshake: wait for in-flight ops to finish

	sqlDB, err := s.db.DB()
	if err == nil {
		_, err = sqlDB.ExecContext(ctx, "PRAGMA optimize")
		if err == nil {
			_, err = sqlDB.ExecContext(ctx, "VACUUM")
		}
	}

	s.mu.Lock()
	s.quiesce = nil
	s.mu.Unlock()
	close(gate)

	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "optimize", err)
	}
	return nil
}

// CloseAll releases the connection pool at shutdown.
func (s *Store) CloseAll() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Wrap(apperrors.KindConnection, "obtain sql.DB", err)
	}
	return sqlDB.Close()
}

// Ping health-checks the pool, used by the /ready handler.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Wrap(apperrors.KindConnection, "obtain sql.DB", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindConnection, "ping", err)
	}
	return nil
}
