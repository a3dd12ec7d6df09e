package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"formfill-poc/internal/mapping"
)

// PostgresStore assembles source records from the office's operational
// database. One SELECT joins the transaction with its buyer, co-buyer,
// property and listing agent into the flat record the mapper consumes.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens a pooled connection to the operational database.
// Connections are acquired per fetch and released with the call, so many
// mapping calls can run concurrently against a bounded pool.
func NewPostgresStore(connectionString string, maxOpenConns, maxIdleConns int) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connectionString)
	if err != nil {
		return nil, &mapping.RepositoryError{Op: "open database", Err: err}
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing database handle.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const fetchRecordQuery = `
	SELECT t.transaction_id,
	       b.first_name, b.middle_name, b.last_name, b.email, b.phone,
	       cb.first_name AS co_buyer_first_name,
	       cb.last_name  AS co_buyer_last_name,
	       p.street_address, p.city, p.state, p.zip, p.county, p.parcel_number,
	       t.price, t.deposit, t.financing_type,
	       t.offer_date, t.close_date, t.signature_date,
	       a.first_name || ' ' || a.last_name AS agent_name,
	       a.license_number AS agent_license, a.brokerage
	FROM transactions t
	JOIN clients b ON b.client_id = t.buyer_id
	LEFT JOIN clients cb ON cb.client_id = t.co_buyer_id
	JOIN properties p ON p.property_id = t.property_id
	JOIN agents a ON a.agent_id = t.agent_id
	WHERE t.transaction_id = $1`

// recordRow is the joined operational row before flattening. NULL columns
// become absent source fields, never errors.
type recordRow struct {
	TransactionID string          `db:"transaction_id"`
	FirstName     sql.NullString  `db:"first_name"`
	MiddleName    sql.NullString  `db:"middle_name"`
	LastName      sql.NullString  `db:"last_name"`
	Email         sql.NullString  `db:"email"`
	Phone         sql.NullString  `db:"phone"`
	CoBuyerFirst  sql.NullString  `db:"co_buyer_first_name"`
	CoBuyerLast   sql.NullString  `db:"co_buyer_last_name"`
	StreetAddress sql.NullString  `db:"street_address"`
	City          sql.NullString  `db:"city"`
	State         sql.NullString  `db:"state"`
	Zip           sql.NullString  `db:"zip"`
	County        sql.NullString  `db:"county"`
	ParcelNumber  sql.NullString  `db:"parcel_number"`
	Price         sql.NullFloat64 `db:"price"`
	Deposit       sql.NullFloat64 `db:"deposit"`
	FinancingType sql.NullString  `db:"financing_type"`
	OfferDate     sql.NullTime    `db:"offer_date"`
	CloseDate     sql.NullTime    `db:"close_date"`
	SignatureDate sql.NullTime    `db:"signature_date"`
	AgentName     sql.NullString  `db:"agent_name"`
	AgentLicense  sql.NullString  `db:"agent_license"`
	Brokerage     sql.NullString  `db:"brokerage"`
}

// FetchRecord resolves one transaction into a flat source record. Record
// identifiers are UUIDs; a malformed identifier cannot match anything, so
// it is reported as not found without touching the database.
func (s *PostgresStore) FetchRecord(ctx context.Context, recordID string) (mapping.SourceRecord, error) {
	if _, err := uuid.Parse(recordID); err != nil {
		return nil, fmt.Errorf("record id %q is not a valid identifier: %w", recordID, mapping.ErrRecordNotFound)
	}

	var row recordRow
	err := s.db.GetContext(ctx, &row, fetchRecordQuery, recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", recordID, mapping.ErrRecordNotFound)
	}
	if err != nil {
		return nil, &mapping.RepositoryError{Op: "fetch record " + recordID, Err: err}
	}

	return row.sourceRecord(), nil
}

// sourceRecord flattens the joined row, skipping NULL columns so absent
// data shows up as absent fields.
func (r *recordRow) sourceRecord() mapping.SourceRecord {
	rec := mapping.SourceRecord{"transaction_id": r.TransactionID}

	putString := func(name string, v sql.NullString) {
		if v.Valid && v.String != "" {
			rec[name] = v.String
		}
	}
	putFloat := func(name string, v sql.NullFloat64) {
		if v.Valid {
			rec[name] = v.Float64
		}
	}
	putDate := func(name string, v sql.NullTime) {
		if v.Valid {
			rec[name] = v.Time.Format("2006-01-02")
		}
	}

	putString("first_name", r.FirstName)
	putString("middle_name", r.MiddleName)
	putString("last_name", r.LastName)
	putString("email", r.Email)
	putString("phone", r.Phone)
	putString("co_buyer_first_name", r.CoBuyerFirst)
	putString("co_buyer_last_name", r.CoBuyerLast)
	putString("street_address", r.StreetAddress)
	putString("city", r.City)
	putString("state", r.State)
	putString("zip", r.Zip)
	putString("county", r.County)
	putString("parcel_number", r.ParcelNumber)
	putFloat("price", r.Price)
	putFloat("deposit", r.Deposit)
	putString("financing_type", r.FinancingType)
	putDate("offer_date", r.OfferDate)
	putDate("close_date", r.CloseDate)
	putDate("signature_date", r.SignatureDate)
	putString("agent_name", r.AgentName)
	putString("agent_license", r.AgentLicense)
	putString("brokerage", r.Brokerage)

	rec["co_buyer_present"] = r.CoBuyerFirst.Valid && r.CoBuyerFirst.String != ""

	return rec
}
