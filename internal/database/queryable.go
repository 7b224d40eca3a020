package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Queryable is satisfied by both sqlx.DB and sqlx.Tx, allowing store
// methods to be used against the database directly, or inside of an
// ongoing transaction (typically via WrapTx).
type Queryable interface {
	sqlx.Queryer
	sqlx.Execer

	NamedExec(query string, arg any) (sql.Result, error)
	Select(dest any, query string, args ...any) error
	Get(dest any, query string, args ...any) error
	Rebind(query string) string
}

// JsonColumn is a thin container which can be used as the destination for
// a JSON aggregated column (e.g. JSONB_AGG) when scanning a query result
// in to a struct. Store models use this container internally, and unpack
// it to the underlying type in their public API.
type JsonColumn[T any] struct {
	val *T
}

func (j *JsonColumn[T]) Scan(src any) error {
	if src == nil {
		return nil
	}

	srcBytes, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T in to JsonColumn (expected []byte)", src)
	}

	val := new(T)
	if err := json.Unmarshal(srcBytes, val); err != nil {
		return err
	}

	j.val = val
	return nil
}

// Get returns the scanned value, which will be nil if the column
// was SQL NULL or the column has not been scanned.
func (j *JsonColumn[T]) Get() *T {
	return j.val
}
