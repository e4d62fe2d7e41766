package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-quote/internal/db"
	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
	"github.com/sells-group/site-quote/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var pricingUpsert = db.UpsertConfig{
	Table:        "pricing",
	Columns:      []string{"currency", "entry", "updated_at"},
	ConflictKeys: []string{"currency"},
}

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried under policy so the service can start alongside its
// database.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, policy resilience.Policy) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := resilience.Do(ctx, policy, "postgres: ping", pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	package        TEXT NOT NULL,
	contact_name   TEXT NOT NULL DEFAULT '',
	contact_email  TEXT NOT NULL DEFAULT '',
	contact_phone  TEXT NOT NULL DEFAULT '',
	questionnaire  JSONB NOT NULL,
	recommendation JSONB NOT NULL,
	quote          JSONB NOT NULL,
	currency       TEXT NOT NULL,
	final_price    NUMERIC(14, 2) NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pricing (
	currency   TEXT PRIMARY KEY,
	entry      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_package ON leads(package);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	prepareLead(lead)
	docs, err := marshalLead(lead)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, package, contact_name, contact_email, contact_phone,
			questionnaire, recommendation, quote, currency, final_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lead.ID, lead.Recommendation.Package.String(),
		lead.Contact.Name, lead.Contact.Email, lead.Contact.Phone,
		docs.questionnaire, docs.recommendation, docs.quote,
		lead.Quote.Currency, lead.Quote.FinalPrice.String(), lead.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert lead %s", lead.ID)
}

const postgresLeadColumns = `id, contact_name, contact_email, contact_phone, questionnaire, recommendation, quote, created_at`

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := scanPostgresLead(s.pool.QueryRow(ctx,
		`SELECT `+postgresLeadColumns+` FROM leads WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: lead %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + postgresLeadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Package != "" {
		query += fmt.Sprintf(` AND package = $%d`, argIdx)
		args = append(args, filter.Package)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		lead, err := scanPostgresLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) LoadPricing(ctx context.Context) (pricing.Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT currency, entry FROM pricing ORDER BY currency`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load pricing")
	}
	defer rows.Close()

	table := pricing.Table{}
	for rows.Next() {
		var code string
		var data []byte
		if err := rows.Scan(&code, &data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pricing")
		}
		entry, err := unmarshalEntry(code, data)
		if err != nil {
			return nil, err
		}
		table[code] = entry
	}
	return table, eris.Wrap(rows.Err(), "postgres: load pricing iterate")
}

func (s *PostgresStore) PutCurrencyPricing(ctx context.Context, currency string, entry pricing.Entry) error {
	code, err := pricingKey(currency)
	if err != nil {
		return err
	}
	data, err := marshalEntry(code, entry)
	if err != nil {
		return err
	}
	_, err = db.Upsert(ctx, s.pool, pricingUpsert, [][]any{{code, data, time.Now().UTC()}})
	return eris.Wrapf(err, "postgres: put pricing %s", code)
}

func (s *PostgresStore) DeleteCurrencyPricing(ctx context.Context, currency string) error {
	code, err := pricingKey(currency)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM pricing WHERE currency = $1`, code)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete pricing %s", code)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "pricing %s", code)
	}
	return nil
}

// ImportPricing writes every entry of table in one transaction.
func (s *PostgresStore) ImportPricing(ctx context.Context, table pricing.Table) (int, error) {
	if err := table.Validate(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(table))
	for _, code := range sortedCodes(table) {
		entry := table[code]
		key, err := pricingKey(code)
		if err != nil {
			return 0, err
		}
		data, err := marshalEntry(key, entry)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{key, data, now})
	}

	if _, err := db.Upsert(ctx, s.pool, pricingUpsert, rows); err != nil {
		return 0, eris.Wrap(err, "postgres: import pricing")
	}
	return len(rows), nil
}

func scanPostgresLead(row pgx.Row) (*model.Lead, error) {
	var lead model.Lead
	var docs leadDocs
	if err := row.Scan(&lead.ID, &lead.Contact.Name, &lead.Contact.Email, &lead.Contact.Phone,
		&docs.questionnaire, &docs.recommendation, &docs.quote, &lead.CreatedAt); err != nil {
		return nil, err
	}
	if err := docs.unmarshalInto(&lead); err != nil {
		return nil, err
	}
	return &lead, nil
}
