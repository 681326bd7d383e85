package errors

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// StoreDiagnostics are the driver-level fields of a database error.
type StoreDiagnostics struct {
	Driver     string `json:"driver"`
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Fields flattens d for a structured log entry.
func (d StoreDiagnostics) Fields() map[string]any {
	fields := map[string]any{"db_driver": d.Driver, "db_code": d.Code}
	for key, value := range map[string]string{
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
		"db_message":    d.Message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

type ErrorDump struct {
	TopMessage string            `json:"top_message"`
	Code       Code              `json:"code,omitempty"`
	Chain      []string          `json:"chain,omitempty"`
	Store      *StoreDiagnostics `json:"store,omitempty"`
}

type extractor func(error) (StoreDiagnostics, bool)

var storeExtractors = []extractor{fromPgx, fromPq, fromSQLite}

// Dump flattens err into loggable diagnostics. It is meant for server-side
// logs only; none of its fields are safe to return to a client.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	for _, extract := range storeExtractors {
		if diag, ok := extract(err); ok {
			d.Store = &diag
			break
		}
	}
	return d
}

func fromPgx(err error) (StoreDiagnostics, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return StoreDiagnostics{}, false
	}
	return StoreDiagnostics{
		Driver:     "pgx",
		Code:       pgErr.Code,
		Constraint: pgErr.ConstraintName,
		Table:      pgErr.TableName,
		Column:     pgErr.ColumnName,
		Detail:     pgErr.Detail,
		Message:    pgErr.Message,
	}, true
}

func fromPq(err error) (StoreDiagnostics, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return StoreDiagnostics{}, false
	}
	return StoreDiagnostics{
		Driver:     "pq",
		Code:       string(pqErr.Code),
		Constraint: pqErr.Constraint,
		Table:      pqErr.Table,
		Column:     pqErr.Column,
		Detail:     pqErr.Detail,
		Message:    pqErr.Message,
	}, true
}

// fromSQLite reports the extended result code, e.g. 2067 for a UNIQUE
// constraint failure.
func fromSQLite(err error) (StoreDiagnostics, bool) {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return StoreDiagnostics{}, false
	}
	return StoreDiagnostics{
		Driver:  "sqlite",
		Code:    strconv.Itoa(int(sqErr.ExtendedCode)),
		Message: sqErr.Error(),
	}, true
}
