package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
	"watchgate/pkg/platform/sentinel"
)

// Schema is the reference-entities DDL. Applied by Migrate; the integration
// suite uses it to prepare a fresh database.
const Schema = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS reference_entities (
    entity_id       text PRIMARY KEY,
    entity_type     text NOT NULL,
    list_type       text NOT NULL,
    normalized_name text NOT NULL,
    name_key        text NOT NULL,
    aliases         text[] NOT NULL DEFAULT '{}',
    country         text NOT NULL DEFAULT '',
    dob             date,
    embedding       vector(384),
    meta            jsonb NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS reference_entities_scope_idx
    ON reference_entities (entity_type, list_type);
CREATE INDEX IF NOT EXISTS reference_entities_name_key_idx
    ON reference_entities (name_key);
CREATE INDEX IF NOT EXISTS reference_entities_name_trgm_idx
    ON reference_entities USING gin (lower(normalized_name) gin_trgm_ops);
CREATE INDEX IF NOT EXISTS reference_entities_embedding_idx
    ON reference_entities USING hnsw (embedding vector_cosine_ops);
`

const hitColumns = `entity_id, entity_type, normalized_name, aliases, country, dob`

// Postgres is the production reference-index backend: pg_trgm drives the AC
// tiers, pgvector the kNN pass.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed reference index.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate reference index: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a reference entity.
func (p *Postgres) Upsert(ctx context.Context, e Entity) error {
	query := `
		INSERT INTO reference_entities
			(entity_id, entity_type, list_type, normalized_name, name_key, aliases, country, dob, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (entity_id) DO UPDATE SET
			entity_type = EXCLUDED.entity_type,
			list_type = EXCLUDED.list_type,
			normalized_name = EXCLUDED.normalized_name,
			name_key = EXCLUDED.name_key,
			aliases = EXCLUDED.aliases,
			country = EXCLUDED.country,
			dob = EXCLUDED.dob,
			embedding = EXCLUDED.embedding
	`
	var embedding any
	if len(e.Embedding) > 0 {
		embedding = pgvector.NewVector(e.Embedding)
	}
	var dob any
	if e.DOB != nil {
		dob = *e.DOB
	}
	_, err := p.db.ExecContext(ctx, query,
		e.ID, string(e.Type), string(e.List), e.NormalizedName, nameKey(e.NormalizedName),
		pq.Array(e.Aliases), e.Country, dob, embedding)
	if err != nil {
		return fmt.Errorf("upsert reference entity: %w", err)
	}
	return nil
}

// SearchAC implements ports.IndexSearcher. Each tier is a distinct query
// shape; scores land in the range the matcher thresholds against.
func (p *Postgres) SearchAC(ctx context.Context, q ports.ACQuery) ([]ports.Hit, error) {
	joined := strings.ToLower(strings.Join(q.Terms, " "))
	if joined == "" {
		return nil, nil
	}

	var (
		query string
		args  []any
	)
	switch q.Tier {
	case ports.ACExact:
		query = `
			SELECT ` + hitColumns + `, 1.0 AS score
			FROM reference_entities
			WHERE ($1 = '' OR entity_type = $1) AND list_type = $2 AND ($3 = '' OR country = $3)
			  AND (lower(normalized_name) = $4
			       OR name_key = $5
			       OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE lower(a) = $4 OR lower(a) = $5))
		`
		args = []any{string(q.EntityType), string(q.List), q.Country, joined, termsKey(q.Terms)}

	case ports.ACPhrase:
		query = `
			SELECT ` + hitColumns + `, LEAST(0.8 + 0.2 * word_similarity($4, lower(normalized_name)), 1.0) AS score
			FROM reference_entities
			WHERE ($1 = '' OR entity_type = $1) AND list_type = $2 AND ($3 = '' OR country = $3)
			  AND to_tsvector('simple', normalized_name || ' ' || array_to_string(aliases, ' '))
			      @@ to_tsquery('simple', $5)
		`
		args = []any{string(q.EntityType), string(q.List), q.Country, joined, phraseQuery(q.Terms)}

	case ports.ACNgram:
		query = `
			SELECT ` + hitColumns + `,
			       GREATEST(similarity(lower(normalized_name), $4),
			                COALESCE((SELECT MAX(similarity(lower(a), $4)) FROM unnest(aliases) a), 0)) AS score
			FROM reference_entities
			WHERE ($1 = '' OR entity_type = $1) AND list_type = $2 AND ($3 = '' OR country = $3)
			  AND (lower(normalized_name) % $4
			       OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE lower(a) % $4))
		`
		args = []any{string(q.EntityType), string(q.List), q.Country, joined}

	default:
		return nil, fmt.Errorf("unknown ac tier %q", q.Tier)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search ac tier %s: %w", q.Tier, err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// SearchVector implements ports.VectorSearcher. The embedding comes from the
// upstream collaborator; without one this backend cannot serve the pass and
// the matcher degrades to AC-only fusion.
func (p *Postgres) SearchVector(ctx context.Context, q ports.VectorQuery) ([]ports.Hit, error) {
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("vector search without embedding: %w", sentinel.ErrUnavailable)
	}
	k := q.K
	if k <= 0 {
		k = 10
	}
	query := `
		SELECT ` + hitColumns + `, 1 - (embedding <=> $4) AS score
		FROM reference_entities
		WHERE ($1 = '' OR entity_type = $1) AND list_type = $2 AND ($3 = '' OR country = $3)
		  AND embedding IS NOT NULL
		ORDER BY embedding <=> $4
		LIMIT $5
	`
	rows, err := p.db.QueryContext(ctx, query,
		string(q.EntityType), string(q.List), q.Country, pgvector.NewVector(q.Embedding), k)
	if err != nil {
		return nil, fmt.Errorf("search vector: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}

// Health implements ports.HealthChecker.
func (p *Postgres) Health(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("reference index ping: %w", err)
	}
	return nil
}

// phraseQuery renders the terms as a tsquery accepting adjacency or a single
// one-word gap between any neighboring pair.
func phraseQuery(terms []string) string {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		lowered = append(lowered, strings.ToLower(t))
	}
	if len(lowered) == 1 {
		return lowered[0]
	}
	variants := []string{strings.Join(lowered, " <-> ")}
	for gap := 0; gap < len(lowered)-1; gap++ {
		parts := make([]string, 0, len(lowered))
		for i, term := range lowered {
			parts = append(parts, term)
			if i == len(lowered)-1 {
				break
			}
			if i == gap {
				parts = append(parts, "<2>")
			} else {
				parts = append(parts, "<->")
			}
		}
		variants = append(variants, strings.Join(parts, " "))
	}
	return "(" + strings.Join(variants, ") | (") + ")"
}

func scanHits(rows *sql.Rows) ([]ports.Hit, error) {
	var hits []ports.Hit
	for rows.Next() {
		var (
			hit     ports.Hit
			aliases pq.StringArray
			country sql.NullString
			dob     sql.NullTime
			eType   string
		)
		if err := rows.Scan(&hit.EntityID, &eType, &hit.NormalizedName, &aliases, &country, &dob, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan reference hit: %w", err)
		}
		hit.EntityType = models.EntityType(eType)
		hit.Aliases = aliases
		hit.Country = country.String
		if dob.Valid {
			d := dob.Time
			hit.DOB = &d
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference hits: %w", err)
	}
	sortHits(hits)
	return hits, nil
}
