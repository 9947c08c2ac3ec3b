package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnosis is the log-only view of an error: never rendered to clients.
type Diagnosis struct {
	Message   string
	Code      Code
	Retryable bool
	Chain     []string

	SQLState   string
	Constraint string
	Table      string
	Detail     string
}

// Diagnose walks err and pulls out the typed code plus whatever the
// database driver attached (pgx, lib/pq, or a sqlite constraint message).
func Diagnose(err error) Diagnosis {
	if err == nil {
		return Diagnosis{}
	}

	d := Diagnosis{Message: err.Error(), Code: CodeInternal, Retryable: true}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.Retryable = MetadataFor(d.Code).Retryable
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Detail = pgxErr.Detail
	case stdErrors.As(err, &pqErr):
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Detail = pqErr.Detail
	default:
		if _, rest, ok := strings.Cut(d.Message, "constraint failed: "); ok {
			d.Constraint = strings.TrimSpace(rest)
		}
	}
	return d
}

// LogFields flattens the diagnosis for structured logging, skipping blanks.
func (d Diagnosis) LogFields() map[string]any {
	fields := map[string]any{
		"error_code":      string(d.Code),
		"error_retryable": d.Retryable,
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	for key, val := range map[string]string{
		"sql_state":     d.SQLState,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_detail":     d.Detail,
	} {
		if val != "" {
			fields[key] = val
		}
	}
	return fields
}
