package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultTable         = "decider_features"
	defaultNotifyChannel = "decider_features_changed"
)

// PostgresSource reads one feature definition per row from a table:
//
//	CREATE TABLE decider_features (
//	    name       text PRIMARY KEY,
//	    definition jsonb NOT NULL,
//	    updated_at timestamptz NOT NULL DEFAULT now()
//	);
//
// Writers announce changes with NOTIFY on the source's channel.
type PostgresSource struct {
	pool    *pgxpool.Pool
	table   string
	channel string
}

// NewPostgresSource creates a PostgreSQL-backed source. Empty table and
// channel names fall back to the defaults.
func NewPostgresSource(pool *pgxpool.Pool, table, channel string) *PostgresSource {
	return &PostgresSource{
		pool:    pool,
		table:   orDefault(table, defaultTable),
		channel: orDefault(channel, defaultNotifyChannel),
	}
}

// Load reads every row and assembles the document.
func (p *PostgresSource) Load(ctx context.Context) (*rules.Document, error) {
	rows, err := p.pool.Query(ctx, selectStatement(p.table))
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrSourceUnavailable, p.table, err)
	}
	defer rows.Close()

	doc := &rules.Document{}
	for rows.Next() {
		var name string
		var definition []byte
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrSourceUnavailable, p.table, err)
		}
		f, err := decodeRow(name, definition)
		if err != nil {
			return nil, err
		}
		doc.Features = append(doc.Features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", ErrSourceUnavailable, p.table, err)
	}
	return doc, nil
}

// Describe implements Source.
func (p *PostgresSource) Describe() string { return "postgres:" + p.table }

// Close closes the database connection pool.
func (p *PostgresSource) Close() error {
	p.pool.Close()
	return nil
}

// EnsureSchema creates the feature table when it does not exist.
func (p *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createStatement(p.table)); err != nil {
		return fmt.Errorf("create %s: %w", p.table, err)
	}
	return nil
}

// Put upserts features in one transaction and notifies listeners.
func (p *PostgresSource) Put(ctx context.Context, features []rules.FeatureConfig) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range features {
		definition, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode feature %q: %w", f.Name, err)
		}
		if _, err := tx.Exec(ctx, upsertStatement(p.table), f.Name, definition); err != nil {
			return fmt.Errorf("upsert feature %q: %w", f.Name, err)
		}
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, fmt.Sprintf("%d", len(features))); err != nil {
		return fmt.Errorf("notify %s: %w", p.channel, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit put tx: %w", err)
	}
	return nil
}

// Changes returns a channel that receives a signal whenever a notification
// arrives on the LISTEN channel. Lost connections are retried every second
// until ctx is done.
func (p *PostgresSource) Changes(ctx context.Context) (<-chan struct{}, error) {
	changes := make(chan struct{}, 1)
	go p.runListener(ctx, changes)
	return changes, nil
}

func (p *PostgresSource) runListener(ctx context.Context, changes chan<- struct{}) {
	defer close(changes)

	for {
		err := p.listen(ctx, changes)
		if err == nil || ctx.Err() != nil {
			return
		}

		retryTimer := time.NewTimer(time.Second)
		select {
		case <-ctx.Done():
			retryTimer.Stop()
			return
		case <-retryTimer.C:
		}
	}
}

func (p *PostgresSource) listen(ctx context.Context, changes chan<- struct{}) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, listenStatement(p.channel)); err != nil {
		return fmt.Errorf("listen on %q: %w", p.channel, err)
	}

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		signal(changes)
	}
}

// decodeRow parses one stored definition. The row name is authoritative; a
// definition naming a different feature is rejected.
func decodeRow(name string, definition []byte) (rules.FeatureConfig, error) {
	f, err := rules.ParseFeature(definition)
	if err != nil {
		return rules.FeatureConfig{}, &rules.FeatureError{Feature: name, Index: -1, Err: err}
	}
	if f.Name == "" {
		f.Name = name
	}
	if f.Name != name {
		return rules.FeatureConfig{}, &rules.FeatureError{
			Feature: name,
			Index:   -1,
			Err:     fmt.Errorf("%w: row defines feature %q", rules.ErrMalformedDocument, f.Name),
		}
	}
	return f, nil
}

func selectStatement(table string) string {
	return fmt.Sprintf("SELECT name, definition FROM %s ORDER BY name", pgx.Identifier{table}.Sanitize())
}

func upsertStatement(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (name, definition, updated_at) VALUES ($1, $2, now())
 ON CONFLICT (name) DO UPDATE SET definition = EXCLUDED.definition, updated_at = now()`,
		pgx.Identifier{table}.Sanitize())
}

func createStatement(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
 name text PRIMARY KEY,
 definition jsonb NOT NULL,
 updated_at timestamptz NOT NULL DEFAULT now()
)`, pgx.Identifier{table}.Sanitize())
}

func listenStatement(channel string) string {
	return fmt.Sprintf("LISTEN %s", pgx.Identifier{channel}.Sanitize())
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
