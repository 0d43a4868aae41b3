package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/adilkhz/paysight/internal/dataset"
	"github.com/adilkhz/paysight/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			date TIMESTAMP,
			amount_kzt DOUBLE PRECISION NOT NULL,
			channel TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT '',
			customer_segment TEXT NOT NULL DEFAULT '',
			merchant_category TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			device_type TEXT NOT NULL DEFAULT '',
			acquisition_source TEXT NOT NULL DEFAULT '',
			is_refunded BOOLEAN NOT NULL DEFAULT FALSE,
			is_canceled BOOLEAN NOT NULL DEFAULT FALSE,
			loaded_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)

	return err
}

// SaveSnapshot replaces the stored transaction table with the snapshot's
// rows in a single transaction.
func (db *DB) SaveSnapshot(snap *dataset.Snapshot) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM transactions`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO transactions (
			transaction_id, date, amount_kzt, channel, payment_method,
			customer_segment, merchant_category, city, region, device_type,
			acquisition_source, is_refunded, is_canceled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (transaction_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range snap.Rows() {
		var date sql.NullTime
		if r.HasDate() {
			date = sql.NullTime{Time: r.Date, Valid: true}
		}
		if _, err := stmt.Exec(
			r.ID, date, r.Amount, r.Channel, r.PaymentMethod,
			r.CustomerSegment, r.MerchantCategory, r.City, r.Region, r.DeviceType,
			r.AcquisitionSource, r.IsRefunded, r.IsCanceled,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the full transaction table into a snapshot.
func (db *DB) LoadSnapshot() (*dataset.Snapshot, error) {
	rows, err := db.Query(`
		SELECT
			transaction_id, date, amount_kzt, channel, payment_method,
			customer_segment, merchant_category, city, region, device_type,
			acquisition_source, is_refunded, is_canceled
		FROM transactions
		ORDER BY date NULLS LAST, transaction_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var r models.TransactionRecord
		var date sql.NullTime
		if err := rows.Scan(
			&r.ID, &date, &r.Amount, &r.Channel, &r.PaymentMethod,
			&r.CustomerSegment, &r.MerchantCategory, &r.City, &r.Region, &r.DeviceType,
			&r.AcquisitionSource, &r.IsRefunded, &r.IsCanceled,
		); err != nil {
			return nil, err
		}
		if date.Valid {
			r.Date = date.Time
		} else {
			r.Date = time.Time{}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dataset.New(records), nil
}
