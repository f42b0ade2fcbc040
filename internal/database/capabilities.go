package database

import (
	"context"
	"database/sql"
	"time"
)

// detectDialect probes what the opened database can do and returns the
// dialect the store renders its SQL with.
func detectDialect(ctx context.Context, db *sql.DB, kind DialectKind, dims int) Dialect {
	d := Dialect{Kind: kind, Dims: dims}
	switch kind {
	case DialectPostgres:
		// The vector extension is created before the pool is handed out.
		d.VectorSQL = true
		d.VectorIndex = dims <= 2000
	case DialectLibSQL:
		ctx2, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		var dist float64
		err := db.QueryRowContext(ctx2, "SELECT vector_distance_cos(vector32('[1,0]'), vector32('[1,0]'))").Scan(&dist)
		d.VectorSQL = err == nil
		d.VectorIndex = err == nil
	}
	return d
}
