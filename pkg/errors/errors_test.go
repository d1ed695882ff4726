package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
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
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load cart")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Fatalf("expected cause in message, got %q", wrapped.Error())
	}
	if Wrap(CodeInternal, nil, "x").Unwrap() != nil {
		t.Fatalf("wrap of nil error should have no cause")
	}
}

func TestIsCodeWalksChain(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(CodeStateConflict, "illegal"))
	if !IsCode(err, CodeStateConflict) {
		t.Fatalf("expected state conflict to be found")
	}
	if IsCode(err, CodeConflict) {
		t.Fatalf("unexpected conflict match")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil should not match")
	}
}

func TestDumpIncludesPgFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "create user")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "users_email_key" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) < 3 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}

func TestDumpFieldsOmitEmptyPgParts(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("redis: %w", context.DeadlineExceeded), "cart store unavailable")

	fields := Dump(err).Fields()
	if fields["error_code"] != CodeDependency {
		t.Fatalf("expected dependency code, got %v", fields["error_code"])
	}
	if fields["canceled"] != true {
		t.Fatalf("expected deadline to be flagged")
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("expected pg fields omitted, got %v", fields)
	}
}

func TestWithDetailsReturnsCopy(t *testing.T) {
	base := New(CodeValidation, "bad")
	withDetails := base.WithDetails(map[string]any{"field": "qty"})
	if base.Details() != nil {
		t.Fatalf("base error was mutated")
	}
	if withDetails.Details() == nil || withDetails.Code() != CodeValidation {
		t.Fatalf("expected details on copy")
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load: %w", Wrap(CodeNotFound, stdErrors.New("no rows"), "order not found"))
	if !stdErrors.Is(err, New(CodeNotFound, "")) {
		t.Fatalf("expected code match through chain")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatalf("unexpected match on other code")
	}
}

func TestCodeOfAndRetryable(t *testing.T) {
	cases := []struct {
		err       error
		code      Code
		retryable bool
	}{
		{err: New(CodeValidation, "x"), code: CodeValidation},
		{err: fmt.Errorf("wrapped: %w", New(CodeDependency, "db")), code: CodeDependency, retryable: true},
		{err: context.DeadlineExceeded, code: CodeDependency, retryable: true},
		{err: stdErrors.New("plain"), code: CodeInternal, retryable: true},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.code {
			t.Fatalf("%v: expected %s got %s", tc.err, tc.code, got)
		}
		if got := Retryable(tc.err); got != tc.retryable {
			t.Fatalf("%v: expected retryable=%v", tc.err, tc.retryable)
		}
	}
	if Retryable(nil) {
		t.Fatalf("nil must not be retryable")
	}
}
