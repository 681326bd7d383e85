package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
		messageOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, messageOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", messageOK: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true, messageOK: true},
		{code: CodeUniqueConstraint, status: http.StatusConflict, publicMsg: "a resource with the provided identifier(s) already exists"},
		{code: CodeStore, status: http.StatusInternalServerError, publicMsg: "an unexpected error occurred on the server", retryable: true},
		{code: CodeMethodNotAllowed, status: http.StatusMethodNotAllowed, publicMsg: "method not allowed", messageOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", messageOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.MessageAllowed != tt.messageOK {
			t.Fatalf("code %s expected message allowed %v got %v", tt.code, tt.messageOK, meta.MessageAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeStore, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeStore {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if wrapped.Error() != "STORE_FAILURE: ctx: boom" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}

	if Wrap(CodeStore, nil, "nothing").Unwrap() != nil {
		t.Fatalf("Wrap with nil cause should behave like New")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeNotFound, "user 7 not found")
	wrapped := fmt.Errorf("outer: %w", err)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestCodeOfAndIsCode(t *testing.T) {
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("untyped errors should report internal")
	}
	conflict := New(CodeConflict, "Email 'a@x.com' already exists")
	if !IsCode(fmt.Errorf("wrap: %w", conflict), CodeConflict) {
		t.Fatal("expected conflict code through wrapping")
	}
	if IsCode(nil, CodeConflict) {
		t.Fatal("nil error should not match any code")
	}
}

func TestDumpExtractsPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "users_email_key",
		TableName:      "users",
		Detail:         "Key (email)=(a@x.com) already exists.",
		Message:        "duplicate key value violates unique constraint \"users_email_key\"",
	}
	dump := Dump(Wrap(CodeUniqueConstraint, pgErr, "insert user"))
	if dump.Code != CodeUniqueConstraint {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if dump.Store == nil || dump.Store.Driver != "pgx" {
		t.Fatalf("pgx diagnostics not extracted: %+v", dump)
	}
	if dump.Store.Code != "23505" || dump.Store.Constraint != "users_email_key" || dump.Store.Table != "users" {
		t.Fatalf("pg fields not extracted: %+v", dump.Store)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "users_user_name_key", Table: "users"}
	dump = Dump(Wrap(CodeUniqueConstraint, pqErr, "update user"))
	if dump.Store == nil || dump.Store.Driver != "pq" || dump.Store.Constraint != "users_user_name_key" {
		t.Fatalf("pq fields not extracted: %+v", dump.Store)
	}

	if Dump(nil).TopMessage != "" {
		t.Fatal("expected empty dump for nil error")
	}
}

func TestDumpExtractsSQLiteDiagnostics(t *testing.T) {
	sqErr := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	dump := Dump(Wrap(CodeUniqueConstraint, fmt.Errorf("insert: %w", sqErr), "insert user"))
	if dump.Store == nil || dump.Store.Driver != "sqlite" || dump.Store.Code != "2067" {
		t.Fatalf("sqlite diagnostics not extracted: %+v", dump.Store)
	}
}

func TestDumpWithoutStoreError(t *testing.T) {
	dump := Dump(New(CodeNotFound, "User with id 1 not found"))
	if dump.Store != nil {
		t.Fatalf("unexpected store diagnostics %+v", dump.Store)
	}
	fields := StoreDiagnostics{Driver: "pgx", Code: "23505", Constraint: "users_email_key"}.Fields()
	if fields["db_constraint"] != "users_email_key" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["db_table"]; ok {
		t.Fatal("empty values should be omitted")
	}
}

func TestNewfAndIsMatchesByCode(t *testing.T) {
	err := Newf(CodeNotFound, "User with id %d not found", 9)
	if err.Message() != "User with id 9 not found" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	wrapped := fmt.Errorf("get: %w", err)
	if !stdErrors.Is(wrapped, New(CodeNotFound, "")) {
		t.Fatal("expected errors.Is to match on code")
	}
	if stdErrors.Is(wrapped, New(CodeConflict, "")) {
		t.Fatal("different codes must not match")
	}
}
