package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

var (
	// ErrDuplicateKey marks a store-level unique constraint violation.
	ErrDuplicateKey = errors.New("db: duplicate key")
	// ErrTimeout marks a statement that outlived its context.
	ErrTimeout = errors.New("db: query timeout")
)

// DBError pairs one of the package sentinels with the driver error it was
// derived from. Column is set when the store named the offending column.
type DBError struct {
	Sentinel   error
	Constraint string
	Column     string
	Cause      error
}

func (e *DBError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s on %s: %v", e.Sentinel, e.Column, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Sentinel, e.Cause)
}

func (e *DBError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *DBError) Unwrap() error        { return e.Cause }

// sqlite reports "UNIQUE constraint failed: users.email"
var sqliteUniqueColumn = regexp.MustCompile(`UNIQUE constraint failed: (?:\w+\.)?(\w+)`)

// postgres detail reads "Key (email)=(a@x.com) already exists."
var pgDetailColumn = regexp.MustCompile(`^Key \(([\w, ]+)\)=`)

// Classify maps raw driver errors into the package sentinels. columns lists
// the unique columns of the table being written; the first one named by the
// constraint, detail or message is reported on the returned DBError.
// Unrecognised errors are returned unchanged.
func Classify(err error, columns ...string) error {
	if err == nil {
		return nil
	}

	var dbe *DBError
	if errors.As(err, &dbe) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &DBError{Sentinel: ErrTimeout, Cause: err}
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != pgUniqueViolation {
			return err
		}
		return &DBError{
			Sentinel:   ErrDuplicateKey,
			Constraint: pgxErr.ConstraintName,
			Column:     matchColumn(columns, pgxErr.ColumnName, detailColumn(pgxErr.Detail), pgxErr.ConstraintName),
			Cause:      err,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pgUniqueViolation {
			return err
		}
		return &DBError{
			Sentinel:   ErrDuplicateKey,
			Constraint: pqErr.Constraint,
			Column:     matchColumn(columns, pqErr.Column, detailColumn(pqErr.Detail), pqErr.Constraint),
			Cause:      err,
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DBError{Sentinel: ErrDuplicateKey, Cause: err}
	}

	msg := err.Error()
	if m := sqliteUniqueColumn.FindStringSubmatch(msg); m != nil {
		return &DBError{
			Sentinel: ErrDuplicateKey,
			Column:   matchColumn(columns, m[1]),
			Cause:    err,
		}
	}
	if strings.Contains(msg, "duplicate key value") {
		return &DBError{
			Sentinel: ErrDuplicateKey,
			Column:   matchColumn(columns, msg),
			Cause:    err,
		}
	}

	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraintName is provided, only violations of that constraint match.
func IsUniqueViolation(err error, constraintName string) bool {
	classified := Classify(err)
	if !errors.Is(classified, ErrDuplicateKey) {
		return false
	}
	if constraintName == "" {
		return true
	}
	var dbe *DBError
	if errors.As(classified, &dbe) && dbe.Constraint != "" {
		return dbe.Constraint == constraintName
	}
	return strings.Contains(err.Error(), constraintName)
}

// IsTimeout reports whether err is a statement that hit its deadline.
func IsTimeout(err error) bool {
	return errors.Is(Classify(err), ErrTimeout)
}

// ViolatedColumn returns the column named by a classified unique violation,
// or "" when the store did not say.
func ViolatedColumn(err error) string {
	var dbe *DBError
	if errors.As(err, &dbe) {
		return dbe.Column
	}
	return ""
}

func detailColumn(detail string) string {
	if m := pgDetailColumn.FindStringSubmatch(detail); m != nil {
		return m[1]
	}
	return ""
}

// matchColumn returns the first candidate column that appears in any of the
// hints. Exact matches win over substring matches.
func matchColumn(columns []string, hints ...string) string {
	for _, hint := range hints {
		for _, col := range columns {
			if hint == col {
				return col
			}
		}
	}
	for _, hint := range hints {
		if hint == "" {
			continue
		}
		for _, col := range columns {
			if strings.Contains(hint, col) {
				return col
			}
		}
	}
	return ""
}
