package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/EgorLis/my-feed/internal/domain"
	"github.com/EgorLis/my-feed/internal/logx"
)

// ---- Postgres репозиторий (pgxpool) + golang-migrate ----

type PGRepo struct {
	logger zerolog.Logger
	pool   *pgxpool.Pool
	schema string
}

type Options struct {
	DSN      string
	Schema   string
	MaxConns int32
	// SkipMigrate: миграции накатываются отдельно (feedd migrate)
	SkipMigrate bool
}

var (
	_ domain.UsersRepo       = (*PGRepo)(nil)
	_ domain.PostsRepo       = (*PGRepo)(nil)
	_ domain.FriendshipsRepo = (*PGRepo)(nil)
	_ domain.LikesRepo       = (*PGRepo)(nil)
	_ domain.CommentsRepo    = (*PGRepo)(nil)
	_ domain.CountersRepo    = (*PGRepo)(nil)
)

func NewPGRepo(ctx context.Context, logger zerolog.Logger, opts Options) (*PGRepo, error) {
	if !opts.SkipMigrate {
		if err := Migrate(opts.DSN, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	// Создаем pgxpool
	logx.Info(logger, "", "postgres.New", "initializing pgxpool...")
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	// подготовленные выражения кешируются на соединении
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 256

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	logx.Info(logger, "", "postgres.New", "pgxpool initialized", "max_conns", cfg.MaxConns)

	schema := opts.Schema
	if schema == "" {
		schema = "public"
	}
	return &PGRepo{pool: pool, schema: schema, logger: logger}, nil
}

func (r *PGRepo) Close() {
	logx.Info(r.logger, "", "postgres.Close", "closing pgxpool...")
	r.pool.Close()
	logx.Info(r.logger, "", "postgres.Close", "pgxpool closed")
}

// ---- Миграции через golang-migrate ----

//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

func Migrate(dsn string, logger zerolog.Logger) error {
	// Открываем *sql.DB с помощью pgx stdlib. Важно: это отдельный экземпляр от pgxpool.
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open pgx: %w", err)
	}
	defer sqldb.Close()

	driver, err := postgres.WithInstance(sqldb, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	src, err := iofs.New(EmbeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	logx.Info(logger, "", "postgres.Migrate", "applying migrations...")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logx.Info(logger, "", "postgres.Migrate", "no new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logx.Info(logger, "", "postgres.Migrate", "migrations applied successfully")
	return nil
}

// ---- Общие помощники ----

func (r *PGRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		logx.Error(r.logger, "", "postgres.Ping", "ping failed", err)
		return err
	}
	logx.Debug(r.logger, "", "postgres.Ping", "ping successful")
	return nil
}

func (r *PGRepo) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PGRepo) table(name string) string {
	return fmt.Sprintf("%s.%s", r.schema, name)
}

func (r *PGRepo) logSQL(op, sqlStr string, args []any) {
	logx.Debug(r.logger, "", op, "sql", "query", sqlStr, "args", args)
}

func (r *PGRepo) logDone(op string, start time.Time, kv ...any) {
	logx.Debug(r.logger, "", op, "ok", append([]any{"took", time.Since(start)}, kv...)...)
}

// Коды ошибок postgres, которые имеют смысл для домена
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapErr переводит ошибки драйвера в доменные.
func (r *PGRepo) mapErr(op string, start time.Time, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		logx.Debug(r.logger, "", op, "no rows", "took", time.Since(start))
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrConflict)
	case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation:
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrBadParams)
	}
	logx.Error(r.logger, "", op, "query failed", err, "took", time.Since(start))
	return fmt.Errorf("%s: %w", op, err)
}
