package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/adilkhz/paysight/models"
)

// requiredColumns must all be present in an uploaded CSV; the remaining
// schema columns are optional and default to their missing value.
var requiredColumns = []string{"transaction_id", "amount_kzt"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02.01.2006",
	time.RFC3339,
}

// LoadCSV reads a transaction CSV, validates its schema and coerces every
// row into a typed record. Unparseable cells degrade to the missing value
// (empty string / 0) instead of failing the whole load; a missing required
// column is a hard error.
func LoadCSV(r io.Reader) (*Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeColumn(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv schema: required column %q is missing", col)
		}
	}

	var rows []models.TransactionRecord
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		rows = append(rows, models.TransactionRecord{
			ID:                cell("transaction_id"),
			Date:              parseDate(cell("date")),
			Amount:            parseFloat(cell("amount_kzt")),
			Channel:           cell("channel"),
			PaymentMethod:     cell("payment_method"),
			CustomerSegment:   cell("customer_segment"),
			MerchantCategory:  cell("merchant_category"),
			City:              cell("city"),
			Region:            cell("region"),
			DeviceType:        cell("device_type"),
			AcquisitionSource: cell("acquisition_source"),
			IsRefunded:        parseBool(cell("is_refunded")),
			IsCanceled:        parseBool(cell("is_canceled")),
		})
	}

	return New(rows), nil
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	// Common aliases seen in uploaded files.
	switch name {
	case "id", "txn_id":
		return "transaction_id"
	case "amount", "sum_kzt":
		return "amount_kzt"
	}
	return name
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseFloat(value string) float64 {
	if value == "" {
		return 0
	}
	value = strings.ReplaceAll(value, ",", ".")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
