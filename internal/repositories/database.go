package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/XSAM/otelsql"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/lib/pq"
)

//go:embed migrations/*.up.sql
var migrationFiles embed.FS

var (
	ErrDuplicate = errors.New("duplicate entry")
	// ErrUsageLimitBelowUsed means a coupon update raced a redemption past its new limit.
	ErrUsageLimitBelowUsed = errors.New("usage limit below used count")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRepositories share one transaction.
type TxRepositories struct {
	Coupon  CouponRepository
	Cart    CartRepository
	Order   OrderRepository
	Product ProductRepository
}

type Transactor interface {
	ExecTx(ctx context.Context, fn func(repos *TxRepositories) error) error
}

type Repository struct {
	DB      *sql.DB
	Coupon  CouponRepository
	Cart    CartRepository
	Order   OrderRepository
	Product ProductRepository
}

func New(cfg *config.Config) (*Repository, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)
	utils.SetDBTimeout(cfg.Database.QueryTimeout)

	// Test the connection to make sure DB is reachable
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewWithDB(db), nil
}

func NewWithDB(db *sql.DB) *Repository {
	return &Repository{
		DB:      db,
		Coupon:  NewCouponRepo(db),
		Cart:    NewCartRepo(db),
		Order:   NewOrderRepository(db),
		Product: NewProductRepo(db),
	}
}

func (p *Repository) ExecTx(ctx context.Context, fn func(repos *TxRepositories) error) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	repos := &TxRepositories{
		Coupon:  NewCouponRepo(tx),
		Cart:    NewCartRepo(tx),
		Order:   NewOrderRepository(tx),
		Product: NewProductRepo(tx),
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Migrate applies the embedded schema files in name order. They are idempotent.
func (p *Repository) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	sort.Strings(files)

	for _, file := range files {
		content, err := migrationFiles.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if _, err := p.DB.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}

		slog.Info("Migration applied", slog.String("file", file))
	}

	return nil
}

func (p *Repository) Close() error {
	return p.DB.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isConstraintViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514" && pqErr.Constraint == constraint
}
