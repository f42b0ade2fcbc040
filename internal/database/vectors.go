package database

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"strings"
)

// detectDBEmbeddingDims infers the embedding width of an existing schema so a
// database created with other dimensions keeps working. It returns 0 for a
// fresh database.
func detectDBEmbeddingDims(ctx context.Context, db *sql.DB, kind DialectKind) int {
	if kind == DialectPostgres {
		var typmod sql.NullInt64
		_ = db.QueryRowContext(ctx, `SELECT a.atttypmod FROM pg_attribute a
            WHERE a.attrelid = to_regclass('entities') AND a.attname = 'embedding'`).Scan(&typmod)
		if typmod.Valid && typmod.Int64 > 0 {
			return int(typmod.Int64)
		}
		return 0
	}

	// Read the CREATE TABLE statement and parse F32_BLOB(n).
	var sqlText sql.NullString
	_ = db.QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE type='table' AND name='entities'").Scan(&sqlText)
	if low := strings.ToLower(sqlText.String); low != "" {
		if idx := strings.Index(low, "f32_blob("); idx >= 0 {
			rest := low[idx+len("f32_blob("):]
			if end := strings.Index(rest, ")"); end > 0 {
				if n, err := strconv.Atoi(strings.TrimSpace(rest[:end])); err == nil && n > 0 {
					return n
				}
			}
		}
	}
	// Plain BLOB columns carry no width; infer it from a stored vector.
	var blob []byte
	_ = db.QueryRowContext(ctx, "SELECT embedding FROM entities WHERE embedding IS NOT NULL LIMIT 1").Scan(&blob)
	if len(blob) > 0 && len(blob)%4 == 0 {
		return len(blob) / 4
	}
	return 0
}

// cosineSimilarity returns 0 when either vector has zero norm.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
