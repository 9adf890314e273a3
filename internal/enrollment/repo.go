package enrollment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Metadata carries optional collaborator-reported details about a template.
type Metadata struct {
	SpoofScore *float64 `json:"spoof_score,omitempty"`
	FaceBox    []int    `json:"face_location,omitempty"`
}

// Encoding is the biometric template reference for one identity. At most one
// active record exists per identity; re-enrollment replaces the vector.
type Encoding struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"student"`
	StudentCode        string    `json:"studentId"`
	Vector             []float64 `json:"-"`
	ImageURL           string    `json:"imageUrl"`
	CloudinaryPublicID *string   `json:"-"`
	IsActive           bool      `json:"isActive"`
	Metadata           *Metadata `json:"metadata,omitempty"`
	EnrolledAt         time.Time `json:"enrollmentDate"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// Repository persists face encodings in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const encodingColumns = `id, user_id, student_code, encoding, image_url, cloudinary_public_id,
	is_active, metadata, enrolled_at, last_updated`

func scanEncoding(row interface{ Scan(...any) error }) (*Encoding, error) {
	var e Encoding
	var vector, metadata []byte
	err := row.Scan(&e.ID, &e.UserID, &e.StudentCode, &vector, &e.ImageURL,
		&e.CloudinaryPublicID, &e.IsActive, &metadata, &e.EnrolledAt, &e.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(vector, &e.Vector); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		var m Metadata
		if err := json.Unmarshal(metadata, &m); err == nil {
			e.Metadata = &m
		}
	}
	return &e, nil
}

// Upsert creates or replaces the record keyed on student code. The previous
// vector is overwritten and the record forced active; there is no history.
func (r *Repository) Upsert(ctx context.Context, e Encoding) (Encoding, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	vector, err := json.Marshal(e.Vector)
	if err != nil {
		return Encoding{}, err
	}
	var metadata []byte
	if e.Metadata != nil {
		metadata, _ = json.Marshal(e.Metadata)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO face_encodings (id, user_id, student_code, encoding, image_url, cloudinary_public_id, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (student_code) DO UPDATE SET
			encoding = EXCLUDED.encoding,
			image_url = EXCLUDED.image_url,
			cloudinary_public_id = EXCLUDED.cloudinary_public_id,
			metadata = EXCLUDED.metadata,
			is_active = TRUE,
			last_updated = NOW()
		RETURNING id, is_active, enrolled_at, last_updated
	`, e.ID, e.UserID, e.StudentCode, vector, e.ImageURL, e.CloudinaryPublicID, metadata)
	if err := row.Scan(&e.ID, &e.IsActive, &e.EnrolledAt, &e.LastUpdated); err != nil {
		return Encoding{}, err
	}
	return e, nil
}

// GetActiveByUserID returns the user's active record, nil when absent.
func (r *Repository) GetActiveByUserID(ctx context.Context, userID string) (*Encoding, error) {
	return scanEncoding(r.db.QueryRowContext(ctx, `
		SELECT `+encodingColumns+` FROM face_encodings WHERE user_id = $1 AND is_active
	`, userID))
}

// ListActive returns every active template. Recognition forwards the full
// set on each call.
func (r *Repository) ListActive(ctx context.Context) ([]Encoding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+encodingColumns+` FROM face_encodings WHERE is_active ORDER BY student_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var encodings []Encoding
	for rows.Next() {
		e, err := scanEncoding(rows)
		if err != nil {
			return nil, err
		}
		encodings = append(encodings, *e)
	}
	return encodings, rows.Err()
}

// DeactivateAll clears every record's active flag. Maintenance operation for
// environment resets.
func (r *Repository) DeactivateAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE face_encodings SET is_active = FALSE, last_updated = NOW() WHERE is_active
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
