package oneiro

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/soy"
)

// SessionRow is the persisted session summary.
type SessionRow struct {
	ID             string    `db:"id" type:"text" constraints:"primarykey"`
	StartedAt      time.Time `db:"started_at" type:"timestamp" constraints:"notnull"`
	CycleCount     int       `db:"cycle_count" type:"int" constraints:"notnull"`
	DreamCount     int       `db:"dream_count" type:"int" constraints:"notnull"`
	REMCount       int       `db:"rem_count" type:"int" constraints:"notnull"`
	MeanConfidence float64   `db:"mean_confidence" type:"float"`
	Incomplete     bool      `db:"incomplete" type:"boolean" default:"false"`
	Created        time.Time `db:"created" type:"timestamp" constraints:"notnull"`
}

// DreamRecord is one persisted dream with its interpretation embedding for
// semantic search over session history.
type DreamRecord struct {
	ID             string    `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	SessionID      string    `db:"session_id" type:"text" constraints:"notnull" references:"dream_sessions(id)"`
	CycleIndex     int       `db:"cycle_index" type:"int" constraints:"notnull"`
	Stage          string    `db:"stage" type:"text" constraints:"notnull"`
	Symbols        string    `db:"symbols" type:"text"`
	Emotion        string    `db:"emotion" type:"text"`
	Intensity      float64   `db:"intensity" type:"float"`
	Lucid          bool      `db:"lucid" type:"boolean"`
	Interpretation string    `db:"interpretation" type:"text"`
	Confidence     float64   `db:"confidence" type:"float"`
	Embedding      Vector    `db:"embedding" type:"vector(1536)"`
	Created        time.Time `db:"created" type:"timestamp" constraints:"notnull"`
}

// Archive defines the interface for session persistence. The orchestrator
// never persists; the caller archives finished records explicitly, so the
// core holds no cross-call ambient state.
type Archive interface {
	// SaveSession persists a finished record and its analyzed dreams.
	SaveSession(ctx context.Context, record *SessionRecord) error

	// GetSession loads a session summary and its dreams in cycle order.
	GetSession(ctx context.Context, id string) (*SessionRow, []DreamRecord, error)

	// ListSessions loads all session summaries, newest first.
	ListSessions(ctx context.Context) ([]*SessionRow, error)

	// SearchDreams finds dreams semantically similar to the query
	// embedding, ordered by similarity, limited to the specified count.
	SearchDreams(ctx context.Context, embedding Vector, limit int) ([]*DreamRecord, error)
}

// SoyArchive implements Archive using soy for PostgreSQL persistence with
// pgvector for dream similarity search.
type SoyArchive struct {
	sessions *soy.Soy[SessionRow]
	dreams   *soy.Soy[DreamRecord]
	db       *sqlx.DB
	embedder Embedder
}

// NewSoyArchive creates a new soy-backed Archive implementation.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	sessions, err := soy.New[SessionRow](db, "dream_sessions", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dream_sessions table: %w", err)
	}

	dreams, err := soy.New[DreamRecord](db, "dreams", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dreams table: %w", err)
	}

	return &SoyArchive{
		sessions: sessions,
		dreams:   dreams,
		db:       db,
	}, nil
}

// WithEmbedder sets the embedder used to index dream interpretations.
// Without one, dreams persist without embeddings and are excluded from
// similarity search.
func (a *SoyArchive) WithEmbedder(e Embedder) *SoyArchive {
	a.embedder = e
	return a
}

// SaveSession persists the session summary plus one DreamRecord per
// analyzed dream. Embedding failures are logged and skipped; persistence
// never fails because the embedding service is down.
func (a *SoyArchive) SaveSession(ctx context.Context, record *SessionRecord) error {
	now := time.Now()
	row := &SessionRow{
		ID:             record.ID,
		StartedAt:      record.StartedAt,
		CycleCount:     len(record.Cycles),
		DreamCount:     record.DreamCount,
		REMCount:       record.REMCount,
		MeanConfidence: record.MeanConfidence,
		Incomplete:     record.Incomplete,
		Created:        now,
	}

	if _, err := a.sessions.Insert().Exec(ctx, row); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for _, c := range record.Cycles {
		if c.Failed || c.Dream == nil || !c.Dream.HasDream || c.Analysis == nil {
			continue
		}

		dream := &DreamRecord{
			SessionID:      record.ID,
			CycleIndex:     c.Index,
			Stage:          string(c.Stage.Stage),
			Symbols:        strings.Join(c.Dream.Symbols, ", "),
			Emotion:        string(c.Dream.Emotion),
			Intensity:      c.Dream.Intensity,
			Lucid:          c.Dream.Lucid,
			Interpretation: c.Analysis.Interpretation,
			Confidence:     c.Analysis.Confidence,
			Created:        now,
		}

		if embedder, err := ResolveEmbedder(ctx, a.embedder); err == nil && embedder != nil {
			embedding, embedErr := embedder.Embed(ctx, c.Analysis.Interpretation)
			if embedErr != nil {
				capitan.Error(ctx, ArchiveEmbedFailed,
					FieldSessionID.Field(record.ID),
					FieldCycleIndex.Field(c.Index),
					FieldError.Field(embedErr),
				)
			} else {
				dream.Embedding = embedding
			}
		}

		if _, err := a.dreams.Insert().Exec(ctx, dream); err != nil {
			return fmt.Errorf("failed to insert dream for cycle %d: %w", c.Index, err)
		}
	}

	capitan.Emit(ctx, SessionArchived,
		FieldSessionID.Field(record.ID),
		FieldCycleCount.Field(len(record.Cycles)),
		FieldDreamCount.Field(record.DreamCount),
	)

	return nil
}

// GetSession loads a session summary and its dreams in cycle order.
func (a *SoyArchive) GetSession(ctx context.Context, id string) (*SessionRow, []DreamRecord, error) {
	row, err := a.sessions.Select().
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"id": id})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	dreamPtrs, err := a.dreams.Query().
		Where("session_id", "=", "session_id").
		OrderBy("cycle_index", "asc").
		Exec(ctx, map[string]any{"session_id": id})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get dreams: %w", err)
	}

	dreams := make([]DreamRecord, len(dreamPtrs))
	for i, d := range dreamPtrs {
		dreams[i] = *d
	}
	return row, dreams, nil
}

// ListSessions loads all session summaries, newest first.
func (a *SoyArchive) ListSessions(ctx context.Context) ([]*SessionRow, error) {
	rows, err := a.sessions.Query().
		OrderBy("started_at", "desc").
		Exec(ctx, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return rows, nil
}

// SearchDreams finds dreams semantically similar to the query embedding.
// Dreams without embeddings are excluded from results.
func (a *SoyArchive) SearchDreams(ctx context.Context, embedding Vector, limit int) ([]*DreamRecord, error) {
	dreams, err := a.dreams.Query().
		WhereNotNull("embedding").
		OrderByExpr("embedding", "<->", "query_embedding", "asc").
		Limit(limit).
		Exec(ctx, map[string]any{"query_embedding": embedding})
	if err != nil {
		return nil, fmt.Errorf("failed to search dreams: %w", err)
	}
	return dreams, nil
}

var _ Archive = (*SoyArchive)(nil)
