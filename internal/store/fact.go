package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// rrfK is the reciprocal rank fusion constant.
const rrfK = 60

type FactStore struct {
	db *pgxpool.Pool
}

func NewFactStore(db *pgxpool.Pool) *FactStore {
	return &FactStore{db: db}
}

func (s *FactStore) Create(ctx context.Context, f *domain.Fact) error {
	var embedding *pgvector.Vector
	if len(f.Embedding) > 0 {
		v := pgvector.NewVector(f.Embedding)
		embedding = &v
	}
	if f.FactType == "" {
		f.FactType = domain.FactTypeWorld
	}

	var documentID *string
	if f.DocumentID != "" {
		documentID = &f.DocumentID
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO facts (agent_id, text, fact_type, context, event_date, confidence, embedding, document_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		f.AgentID, f.Text, f.FactType, f.Context, f.EventDate, f.Confidence, embedding, documentID,
	).Scan(&f.ID, &f.CreatedAt)
}

// Search runs one statement that ranks the agent's facts by vector distance
// and by full-text match, fuses both rankings with RRF and adds a small
// recency bonus. A nil embedding disables the semantic arm.
func (s *FactStore) Search(ctx context.Context, agentID uuid.UUID, opts domain.SearchOpts) ([]domain.Fact, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if len(opts.FactTypes) == 0 {
		opts.FactTypes = domain.AllFactTypes()
	}
	types := make([]string, len(opts.FactTypes))
	for i, t := range opts.FactTypes {
		types[i] = string(t)
	}

	var embedding *pgvector.Vector
	if len(opts.Embedding) > 0 {
		v := pgvector.NewVector(opts.Embedding)
		embedding = &v
	}

	// Each arm over-fetches so that fusion has candidates to reorder.
	candidates := opts.Limit * 2

	query := fmt.Sprintf(
		`WITH semantic AS (
		    SELECT id, ROW_NUMBER() OVER (ORDER BY embedding <=> $2::vector) AS rnk
		    FROM facts
		    WHERE agent_id = $1 AND fact_type = ANY($3) AND embedding IS NOT NULL AND $2::vector IS NOT NULL
		    ORDER BY embedding <=> $2::vector
		    LIMIT $5
		 ),
		 keyword AS (
		    SELECT f.id, ROW_NUMBER() OVER (ORDER BY ts_rank_cd(f.search, q) DESC) AS rnk
		    FROM facts f, plainto_tsquery('english', $4) q
		    WHERE f.agent_id = $1 AND f.fact_type = ANY($3) AND f.search @@ q
		    ORDER BY ts_rank_cd(f.search, q) DESC
		    LIMIT $5
		 ),
		 fused AS (
		    SELECT id, SUM(1.0 / (%d + rnk)) AS score
		    FROM (SELECT id, rnk FROM semantic UNION ALL SELECT id, rnk FROM keyword) ranked
		    GROUP BY id
		 )
		 SELECT f.id, f.agent_id, f.text, f.fact_type, f.context, f.event_date, f.confidence, COALESCE(f.document_id, ''), f.created_at,
		        (fused.score + 0.1 / (%d + ROW_NUMBER() OVER (ORDER BY COALESCE(f.event_date, f.created_at) DESC)))::float8 AS activation
		 FROM fused
		 JOIN facts f ON f.id = fused.id
		 ORDER BY activation DESC, f.created_at DESC
		 LIMIT $6`,
		rrfK, rrfK,
	)

	rows, err := s.db.Query(ctx, query, agentID, embedding, types, opts.Query, candidates, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	results := []domain.Fact{}
	for rows.Next() {
		var f domain.Fact
		var activation float64
		err := rows.Scan(
			&f.ID, &f.AgentID, &f.Text, &f.FactType, &f.Context, &f.EventDate, &f.Confidence, &f.DocumentID, &f.CreatedAt,
			&activation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		f.Activation = &activation
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}

	return results, nil
}

func (s *FactStore) DeleteByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM facts WHERE agent_id = $1`, agentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *FactStore) CountByAgent(ctx context.Context, agentID uuid.UUID) (map[domain.FactType]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fact_type, COUNT(*) FROM facts WHERE agent_id = $1 GROUP BY fact_type`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("count facts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.FactType]int, 3)
	for _, t := range domain.AllFactTypes() {
		counts[t] = 0
	}
	for rows.Next() {
		var t domain.FactType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}
