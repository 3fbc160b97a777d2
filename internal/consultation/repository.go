package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("consultation not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Save(ctx context.Context, c *Consultation) error
}

// sqlRepo works against postgres and sqlite3; the queries stick to the
// dialect both understand.
type sqlRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &sqlRepo{db: db}
}

func (r *sqlRepo) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	query := `SELECT id, symptoms, has_audio, has_image, summary_text, diagnosis_text, path, condition_id, voice_audio, voice_mime, created_at
		FROM consultations WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id.String())

	var c Consultation
	var symptomsJSON string
	var conditionID, voiceMIME sql.NullString
	var voice []byte

	err := row.Scan(
		&c.ID,
		&symptomsJSON,
		&c.HasAudio,
		&c.HasImage,
		&c.Summary,
		&c.Diagnosis,
		&c.Path,
		&conditionID,
		&voice,
		&voiceMIME,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if symptomsJSON != "" {
		if err := json.Unmarshal([]byte(symptomsJSON), &c.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal symptoms: %w", err)
		}
	}
	c.ConditionID = conditionID.String
	if len(voice) > 0 {
		c.Voice = &VoiceArtifact{Audio: voice, MIMEType: voiceMIME.String}
	}
	c.CreatedAt = c.CreatedAt.UTC()

	return &c, nil
}

func (r *sqlRepo) Save(ctx context.Context, c *Consultation) error {
	symptoms := c.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	symptomsJSON, err := json.Marshal(symptoms)
	if err != nil {
		return err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	var voice []byte
	var voiceMIME, conditionID sql.NullString
	if c.Voice != nil {
		voice = c.Voice.Audio
		voiceMIME = sql.NullString{String: c.Voice.MIMEType, Valid: true}
	}
	if c.ConditionID != "" {
		conditionID = sql.NullString{String: c.ConditionID, Valid: true}
	}

	query := `
		INSERT INTO consultations (id, symptoms, has_audio, has_image, summary_text, diagnosis_text, path, condition_id, voice_audio, voice_mime, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			summary_text = $5,
			diagnosis_text = $6,
			path = $7,
			condition_id = $8,
			voice_audio = $9,
			voice_mime = $10
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID.String(), string(symptomsJSON), c.HasAudio, c.HasImage, c.Summary, c.Diagnosis, string(c.Path),
		conditionID, voice, voiceMIME, c.CreatedAt)
	return err
}

type memoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Consultation
}

// NewMemoryRepository keeps consultations in process memory. Used when no
// database is reachable.
func NewMemoryRepository() Repository {
	return &memoryRepo{items: make(map[uuid.UUID]Consultation)}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) Save(_ context.Context, c *Consultation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.items[c.ID] = *c
	r.mu.Unlock()
	return nil
}
