package sqlstore

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/adverthide/internal/model"
)

// Stored text forms of custom-field values.
const (
	flagTrueText = "1"
	zeroDateText = "0000-00-00 00:00:00"
	dateLayout   = "2006-01-02 15:04:05"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanCandidate scans an (id, publish_up) row.
func scanCandidate(row scannable) (model.Candidate, error) {
	var (
		c         model.Candidate
		publishUp sql.NullTime
	)
	if err := row.Scan(&c.ID, &publishUp); err != nil {
		return model.Candidate{}, err
	}
	c.PublishUp = timePtr(publishUp)
	return c, nil
}

// scanCandidates scans all rows into a slice of candidates.
func scanCandidates(rows *sql.Rows) ([]model.Candidate, error) {
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanIDs scans a single id column.
func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// timePtr converts a nullable column to a *time.Time. MySQL zero dates
// scan as the zero time and are treated as null.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid || nt.Time.IsZero() {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// fieldValueText converts a typed field value to the text the host stores.
// The second result is false for a date value without a date.
func fieldValueText(v model.FieldValue) (string, bool) {
	switch v.Kind {
	case model.FieldValueFlag:
		if v.Flag {
			return flagTrueText, true
		}
		return "0", true
	case model.FieldValueDate:
		if !v.HasDate() {
			return "", false
		}
		return v.Date.UTC().Format(dateLayout), true
	default:
		return "", false
	}
}
