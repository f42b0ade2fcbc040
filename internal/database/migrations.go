package database

import "fmt"

// SchemaVersion is the latest version in the registry.
const SchemaVersion = 4

// Migrations returns the schema registry rendered for d.
func Migrations(d Dialect) []Migration {
	ts := "TEXT NOT NULL"
	vec := d.VectorColumn()

	graph := Migration{
		Version: 1,
		Name:    "graph",
		Up: []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
        name TEXT PRIMARY KEY,
        entity_type TEXT NOT NULL,
        embedding %s,
        created_at %s,
        updated_at %s
    )`, vec, ts, ts),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS observations (
        id %s,
        entity_name TEXT NOT NULL,
        content TEXT NOT NULL,
        created_at %s
    )`, d.SerialPK(), ts),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS relations (
        id %s,
        source TEXT NOT NULL,
        target TEXT NOT NULL,
        relation_type TEXT NOT NULL,
        created_at %s,
        UNIQUE (source, target, relation_type)
    )`, d.SerialPK(), ts),
		},
		Down: []string{
			"DROP TABLE IF EXISTS relations",
			"DROP TABLE IF EXISTS observations",
			"DROP TABLE IF EXISTS entities",
		},
	}
	if d.Kind == DialectPostgres {
		graph.Up = append([]string{"CREATE EXTENSION IF NOT EXISTS vector"}, graph.Up...)
	}

	documents := Migration{
		Version: 2,
		Name:    "documents",
		Up: []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY,
        content TEXT NOT NULL,
        metadata TEXT,
        created_at %s,
        updated_at %s
    )`, ts, ts),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
        id TEXT PRIMARY KEY,
        document_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        text TEXT NOT NULL,
        token_count INTEGER NOT NULL,
        embedding %s,
        UNIQUE (document_id, position)
    )`, vec),
		},
		Down: []string{
			"DROP TABLE IF EXISTS chunks",
			"DROP TABLE IF EXISTS documents",
		},
	}

	links := Migration{
		Version: 3,
		Name:    "entity_chunk_links",
		Up: []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entity_chunk_links (
        entity_name TEXT NOT NULL,
        chunk_id TEXT NOT NULL,
        created_at %s,
        PRIMARY KEY (entity_name, chunk_id)
    )`, ts),
		},
		Down: []string{"DROP TABLE IF EXISTS entity_chunk_links"},
	}

	indexes := Migration{
		Version: 4,
		Name:    "indexes",
		Up: []string{
			`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type)`,
			`CREATE INDEX IF NOT EXISTS idx_observations_entity ON observations(entity_name)`,
			`CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source)`,
			`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target)`,
			`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, position)`,
			`CREATE INDEX IF NOT EXISTS idx_links_chunk ON entity_chunk_links(chunk_id)`,
		},
		Down: []string{
			"DROP INDEX IF EXISTS idx_links_chunk",
			"DROP INDEX IF EXISTS idx_chunks_document",
			"DROP INDEX IF EXISTS idx_relations_target",
			"DROP INDEX IF EXISTS idx_relations_source",
			"DROP INDEX IF EXISTS idx_observations_entity",
			"DROP INDEX IF EXISTS idx_entities_type",
		},
	}
	if d.VectorIndex {
		switch d.Kind {
		case DialectLibSQL:
			indexes.Up = append(indexes.Up,
				`CREATE INDEX IF NOT EXISTS idx_entities_embedding ON entities(libsql_vector_idx(embedding))`,
				`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks(libsql_vector_idx(embedding))`)
		case DialectPostgres:
			indexes.Up = append(indexes.Up,
				`CREATE INDEX IF NOT EXISTS idx_entities_embedding ON entities USING hnsw (embedding vector_cosine_ops)`,
				`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops)`)
		}
		indexes.Down = append([]string{
			"DROP INDEX IF EXISTS idx_chunks_embedding",
			"DROP INDEX IF EXISTS idx_entities_embedding",
		}, indexes.Down...)
	}

	return []Migration{graph, documents, links, indexes}
}
