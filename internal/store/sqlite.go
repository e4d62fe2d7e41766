package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/site-quote/internal/model"
	"github.com/sells-group/site-quote/internal/pricing"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	package        TEXT NOT NULL,
	contact_name   TEXT NOT NULL DEFAULT '',
	contact_email  TEXT NOT NULL DEFAULT '',
	contact_phone  TEXT NOT NULL DEFAULT '',
	questionnaire  TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	quote          TEXT NOT NULL,
	currency       TEXT NOT NULL,
	final_price    TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pricing (
	currency   TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_package ON leads(package);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	prepareLead(lead)
	docs, err := marshalLead(lead)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, package, contact_name, contact_email, contact_phone,
			questionnaire, recommendation, quote, currency, final_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Recommendation.Package.String(),
		lead.Contact.Name, lead.Contact.Email, lead.Contact.Phone,
		string(docs.questionnaire), string(docs.recommendation), string(docs.quote),
		lead.Quote.Currency, lead.Quote.FinalPrice.String(), lead.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert lead %s", lead.ID)
}

const sqliteLeadColumns = `id, contact_name, contact_email, contact_phone, questionnaire, recommendation, quote, created_at`

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE id = ?`, id,
	)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: lead %s", id)
	}
	return lead, err
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + sqliteLeadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Package != "" {
		query += ` AND package = ?`
		args = append(args, filter.Package)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) LoadPricing(ctx context.Context) (pricing.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT currency, entry FROM pricing ORDER BY currency`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load pricing")
	}
	defer rows.Close()

	table := pricing.Table{}
	for rows.Next() {
		var code, data string
		if err := rows.Scan(&code, &data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pricing")
		}
		entry, err := unmarshalEntry(code, []byte(data))
		if err != nil {
			return nil, err
		}
		table[code] = entry
	}
	return table, eris.Wrap(rows.Err(), "sqlite: load pricing iterate")
}

func (s *SQLiteStore) PutCurrencyPricing(ctx context.Context, currency string, entry pricing.Entry) error {
	code, err := pricingKey(currency)
	if err != nil {
		return err
	}
	data, err := marshalEntry(code, entry)
	if err != nil {
		return err
	}
	return eris.Wrapf(upsertPricingSQLite(ctx, s.db, code, data), "sqlite: put pricing %s", code)
}

func (s *SQLiteStore) DeleteCurrencyPricing(ctx context.Context, currency string) error {
	code, err := pricingKey(currency)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pricing WHERE currency = ?`, code)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete pricing %s", code)
	}
	return checkRowsAffected(res, "pricing", code)
}

// ImportPricing writes every entry of table in one transaction.
func (s *SQLiteStore) ImportPricing(ctx context.Context, table pricing.Table) (int, error) {
	if err := table.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import pricing begin")
	}
	defer tx.Rollback() //nolint:errcheck

	n := 0
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
		if err := upsertPricingSQLite(ctx, tx, key, data); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import pricing %s", key)
		}
		n++
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: import pricing commit")
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPricingSQLite(ctx context.Context, db execer, code string, data []byte) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO pricing (currency, entry, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (currency) DO UPDATE SET entry = excluded.entry, updated_at = excluded.updated_at`,
		code, string(data), time.Now().UTC(),
	)
	return err
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var lead model.Lead
	var q, rec, quote string

	err := row.Scan(&lead.ID, &lead.Contact.Name, &lead.Contact.Email, &lead.Contact.Phone,
		&q, &rec, &quote, &lead.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	docs := leadDocs{questionnaire: []byte(q), recommendation: []byte(rec), quote: []byte(quote)}
	if err := docs.unmarshalInto(&lead); err != nil {
		return nil, err
	}
	return &lead, nil
}
