// Package encode turns categorical transaction fields into stable numeric
// codes. An Encoding is fitted once during training and is immutable
// afterwards; inference threads the fitted encoding through every call.
package encode

import (
	"github.com/adilkhz/paysight/models"
)

// SentinelCode is the reserved code for categorical values never seen
// during training. Encoding an unseen value is not an error.
const SentinelCode = -1.0

// Encoding maps categorical value -> numeric code for each fitted column.
// Codes are assigned in first-seen order, so identical input order always
// reproduces identical codes.
type Encoding struct {
	Columns []string
	tables  map[string]map[string]float64
}

// Fit scans the rows exactly once and builds a category table per column.
// Empty values are treated as missing and never enter a table.
func Fit(rows []models.TransactionRecord, columns []string) *Encoding {
	e := &Encoding{
		Columns: append([]string(nil), columns...),
		tables:  make(map[string]map[string]float64, len(columns)),
	}
	for _, col := range columns {
		e.tables[col] = make(map[string]float64)
	}

	for i := range rows {
		for _, col := range columns {
			value := rows[i].Categorical(col)
			if value == "" {
				continue
			}
			table := e.tables[col]
			if _, seen := table[value]; !seen {
				table[value] = float64(len(table))
			}
		}
	}
	return e
}

// Code returns the fitted code for one column value, or the sentinel when
// the value was never seen at training time.
func (e *Encoding) Code(column, value string) float64 {
	table, ok := e.tables[column]
	if !ok {
		return SentinelCode
	}
	code, ok := table[value]
	if !ok {
		return SentinelCode
	}
	return code
}

// Cardinality returns how many distinct categories a column holds.
func (e *Encoding) Cardinality(column string) int {
	return len(e.tables[column])
}

// Vector encodes one record as the amount followed by the code of each
// fitted column, in fitted column order.
func (e *Encoding) Vector(r *models.TransactionRecord) []float64 {
	vec := make([]float64, 0, len(e.Columns)+1)
	vec = append(vec, r.Amount)
	for _, col := range e.Columns {
		vec = append(vec, e.Code(col, r.Categorical(col)))
	}
	return vec
}

// UsableColumns returns the subset of candidate columns that have at least
// one non-missing value across the rows.
func UsableColumns(rows []models.TransactionRecord, candidates []string) []string {
	usable := make([]string, 0, len(candidates))
	for _, col := range candidates {
		for i := range rows {
			if rows[i].Categorical(col) != "" {
				usable = append(usable, col)
				break
			}
		}
	}
	return usable
}
