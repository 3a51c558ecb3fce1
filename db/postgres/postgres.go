// Package postgres records each uploaded reading so history survives the
// device restarting. The sink is optional and write errors are never fatal.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id          SERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	profile     TEXT NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	humidity    DOUBLE PRECISION NOT NULL,
	soil_raw    INTEGER NOT NULL,
	status      TEXT NOT NULL
)`

type DB struct {
	conn *sql.DB
}

func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, schema)
	return err
}

type WriteReadingParams struct {
	Profile     string
	Temperature float64
	Humidity    float64
	SoilRaw     int
	Status      string
}

func (d *DB) WriteReading(ctx context.Context, p WriteReadingParams) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO readings (profile, temperature, humidity, soil_raw, status) VALUES ($1, $2, $3, $4, $5)`,
		p.Profile, p.Temperature, p.Humidity, p.SoilRaw, p.Status)
	return err
}

func (d *DB) Close() error {
	return d.conn.Close()
}
