package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a row lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("already exists")
	// ErrInvalidReference is returned when a foreign key points nowhere.
	ErrInvalidReference = errors.New("referenced row does not exist")
)

// DB wraps the connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to PostgreSQL and applies the schema
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Pool: pool}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS tienda (
	id_tienda   SERIAL PRIMARY KEY,
	nombre      TEXT NOT NULL UNIQUE,
	url_base    TEXT NOT NULL DEFAULT '',
	codigo_pais TEXT NOT NULL DEFAULT 'MX'
);

CREATE TABLE IF NOT EXISTS categoria (
	id_categoria SERIAL PRIMARY KEY,
	nombre       TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS marca (
	id_marca SERIAL PRIMARY KEY,
	nombre   TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS producto (
	id_producto  SERIAL PRIMARY KEY,
	id_tienda    INT NOT NULL REFERENCES tienda (id_tienda),
	id_categoria INT NOT NULL REFERENCES categoria (id_categoria),
	id_marca     INT NOT NULL REFERENCES marca (id_marca),
	nombre       TEXT NOT NULL,
	sabor        TEXT,
	volumen_ml   INT,
	upc          TEXT,
	sku          TEXT,
	url_producto TEXT,
	creado_en    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_producto_tienda ON producto (id_tienda);

CREATE TABLE IF NOT EXISTS historial_precio (
	id_precio      SERIAL PRIMARY KEY,
	id_producto    INT NOT NULL REFERENCES producto (id_producto) ON DELETE CASCADE,
	precio         NUMERIC(12, 2) NOT NULL,
	moneda         TEXT NOT NULL DEFAULT 'MXN',
	etiqueta_promo TEXT,
	capturado_en   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_historial_producto ON historial_precio (id_producto, capturado_en DESC);
`

// Migrate creates the tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// classify maps PostgreSQL constraint errors onto the package sentinels
func classify(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", action, ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", action, ErrInvalidReference)
		}
	}
	return fmt.Errorf("%s: %w", action, err)
}
