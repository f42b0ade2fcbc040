package database

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// DialectKind names the SQL flavour of a backend.
type DialectKind string

const (
	DialectLibSQL   DialectKind = "libsql"
	DialectSQLite   DialectKind = "sqlite"
	DialectPostgres DialectKind = "postgres"
)

// Dialect renders the few statements that differ between backends. The store
// writes queries with '?' placeholders and passes them through Rebind.
type Dialect struct {
	Kind DialectKind
	Dims int
	// VectorSQL is set when the database computes cosine distance itself.
	// Otherwise similarity is scored in Go over the stored vectors.
	VectorSQL bool
	// VectorIndex is set when an ANN index can be created on embeddings.
	VectorIndex bool
}

// Rebind rewrites '?' placeholders to '$n' for Postgres. Queries never carry
// literal question marks.
func (d Dialect) Rebind(query string) string {
	if d.Kind != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// VectorColumn is the column type for embeddings.
func (d Dialect) VectorColumn() string {
	switch d.Kind {
	case DialectLibSQL:
		return fmt.Sprintf("F32_BLOB(%d)", d.Dims)
	case DialectPostgres:
		return fmt.Sprintf("vector(%d)", d.Dims)
	default:
		return "BLOB"
	}
}

// SerialPK is an auto-incrementing integer primary key.
func (d Dialect) SerialPK() string {
	if d.Kind == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// VectorPlaceholder is the bind expression for a vector argument.
func (d Dialect) VectorPlaceholder() string {
	if d.Kind == DialectLibSQL {
		return "vector32(?)"
	}
	return "?"
}

// SimilarityExpr scores col against one vector argument as 1 - cosine distance.
func (d Dialect) SimilarityExpr(col string) string {
	if d.Kind == DialectPostgres {
		return fmt.Sprintf("(1 - (%s <=> ?))", col)
	}
	return fmt.Sprintf("(1 - vector_distance_cos(%s, vector32(?)))", col)
}

// VectorArg converts v into the driver value bound to VectorPlaceholder.
// Non-finite components are replaced by zero.
func (d Dialect) VectorArg(v []float32) (any, error) {
	if len(v) != d.Dims {
		return nil, fmt.Errorf("vector must have exactly %d dimensions, got %d", d.Dims, len(v))
	}
	clean := make([]float32, len(v))
	for i, x := range v {
		if !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0) {
			clean[i] = x
		}
	}
	switch d.Kind {
	case DialectLibSQL:
		return vectorLiteral(clean), nil
	case DialectPostgres:
		return pgvector.NewVector(clean), nil
	default:
		return encodeF32(clean), nil
	}
}

// vectorLiteral renders the text form accepted by vector32().
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func encodeF32(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeF32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding size: %d bytes is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// vectorScanner reads an embedding column in any dialect.
type vectorScanner struct {
	kind DialectKind
	vec  []float32
}

func (s *vectorScanner) Scan(src any) error {
	if src == nil {
		s.vec = nil
		return nil
	}
	if s.kind == DialectPostgres {
		if v, ok := src.(pgvector.Vector); ok {
			s.vec = v.Slice()
			return nil
		}
		var v pgvector.Vector
		if err := v.Scan(src); err != nil {
			return err
		}
		s.vec = v.Slice()
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported embedding type %T", src)
	}
	v, err := decodeF32(b)
	if err != nil {
		return err
	}
	s.vec = v
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
