package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:     {http.StatusBadRequest, terminal, "validation failed", showDetails},
		CodeUnauthorized:   {http.StatusUnauthorized, terminal, "authentication required", hideDetails},
		CodeNotFound:       {http.StatusNotFound, terminal, "resource not found", hideDetails},
		CodeStateConflict:  {http.StatusUnprocessableEntity, terminal, "state transition disallowed", showDetails},
		CodeInternal:       {http.StatusInternalServerError, canRetry, "internal server error", hideDetails},
		CodeEmptySelection: {http.StatusUnprocessableEntity, terminal, "no purchasable items selected", hideDetails},
		CodeNotReady:       {http.StatusUnprocessableEntity, terminal, "please complete all checkout steps", showDetails},
		CodePersistence:    {http.StatusServiceUnavailable, canRetry, "order could not be saved, please retry", showDetails},
	}
	for code, meta := range want {
		assert.Equal(t, meta, MetadataFor(code), "code %s", code)
	}
	for code := range metadataByCode {
		assert.NotEmpty(t, MetadataFor(code).PublicMessage, "code %s", code)
	}
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestNewAndWrap(t *testing.T) {
	e := New(CodeValidation, "missing city")
	assert.Equal(t, CodeValidation, e.Code())
	assert.Equal(t, "missing city", e.Message())
	assert.Nil(t, e.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing city", e.Error())

	e.WithDetails(map[string]any{"field": "city"})
	assert.Equal(t, map[string]any{"field": "city"}, e.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "reserve")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
}

func TestAsAndIsCodeWalkTheChain(t *testing.T) {
	inner := Wrap(CodePersistence, stdErrors.New("connection reset"), "create order")
	outer := fmt.Errorf("commit: %w", inner)

	require.NotNil(t, As(outer))
	assert.Equal(t, CodePersistence, As(outer).Code())
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	assert.True(t, IsCode(outer, CodePersistence))
	assert.False(t, IsCode(outer, CodeNotReady))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
}

func TestDiagnosePostgresConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_checkout_session_id", TableName: "orders"}
	d := Diagnose(Wrap(CodePersistence, fmt.Errorf("insert order: %w", pgErr), "order could not be saved"))

	assert.Equal(t, CodePersistence, d.Code)
	assert.True(t, d.Retryable)
	assert.Equal(t, "23505", d.SQLState)
	assert.Equal(t, "ux_orders_checkout_session_id", d.Constraint)
	assert.Equal(t, "orders", d.Table)
	assert.GreaterOrEqual(t, len(d.Chain), 2)
	assert.Equal(t, "ux_orders_checkout_session_id", d.LogFields()["db_constraint"])
}

func TestDiagnoseSQLiteMessage(t *testing.T) {
	d := Diagnose(stdErrors.New("UNIQUE constraint failed: orders.checkout_session_id"))
	assert.Equal(t, CodeInternal, d.Code)
	assert.Equal(t, "orders.checkout_session_id", d.Constraint)
	assert.NotContains(t, d.LogFields(), "sql_state")

	empty := Diagnose(nil)
	assert.Empty(t, empty.Message)
	assert.Nil(t, empty.Chain)
}
