package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/cloudinary"
	"hostelhub/internal/faceclient"
	"hostelhub/internal/identity"
)

// Repo is the storage surface the service needs.
type Repo interface {
	Upsert(ctx context.Context, e Encoding) (Encoding, error)
	GetActiveByUserID(ctx context.Context, userID string) (*Encoding, error)
	ListActive(ctx context.Context) ([]Encoding, error)
	DeactivateAll(ctx context.Context) (int64, error)
}

// UserDirectory resolves identities and records the enrollment flag.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
	GetByStudentCode(ctx context.Context, code string) (*identity.User, error)
	SetFaceEnrollment(ctx context.Context, id string, enrolled bool, imageURL, publicID *string) error
	ClearFaceEnrollment(ctx context.Context) (int64, error)
}

// Recognizer is the external recognition collaborator.
type Recognizer interface {
	Encode(ctx context.Context, imageURL, studentCode string) (*faceclient.EncodeResult, error)
	Recognize(ctx context.Context, imageURL string, known []faceclient.KnownEncoding) (*faceclient.RecognizeResult, error)
	MockMode() bool
}

// ImageStore uploads images and removes them on failure paths.
type ImageStore interface {
	UploadBytes(data []byte, filename string) (*cloudinary.UploadResult, error)
	Destroy(publicID string) error
}

// Service manages biometric templates and delegates recognition.
type Service struct {
	repo   Repo
	users  UserDirectory
	face   Recognizer
	images ImageStore
	log    zerolog.Logger
}

// NewService creates a service. images may be nil when no image storage is
// configured; face endpoints then answer unavailable.
func NewService(repo Repo, users UserDirectory, face Recognizer, images ImageStore, log zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, face: face, images: images, log: log}
}

// EnrollResult reports a completed enrollment.
type EnrollResult struct {
	StudentCode  string   `json:"studentId"`
	EnrollmentID string   `json:"enrollmentId"`
	ImageURL     string   `json:"imageUrl"`
	SpoofScore   *float64 `json:"spoof_score,omitempty"`
}

// Enroll uploads the image, asks the collaborator for a template and
// upserts it. Re-enrollment silently replaces the previous template.
func (s *Service) Enroll(ctx context.Context, callerID string, image []byte, filename string) (*EnrollResult, error) {
	if len(image) == 0 {
		return nil, apperrors.Validation("please upload an image")
	}
	if s.images == nil {
		return nil, apperrors.Unavailable("image storage not configured")
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user not found")
	}
	if user.Code() == "" {
		return nil, apperrors.Validation("student ID is required for face enrollment")
	}

	upload, err := s.images.UploadBytes(image, filename)
	if err != nil {
		s.log.Error().Err(err).Str("student", user.Code()).Msg("enrollment image upload failed")
		return nil, apperrors.Unavailable("image upload failed")
	}

	encoded, err := s.face.Encode(ctx, upload.SecureURL, user.Code())
	if err != nil {
		// The upload is orphaned if encoding failed; removal is best-effort.
		if derr := s.images.Destroy(upload.PublicID); derr != nil {
			s.log.Warn().Err(derr).Str("public_id", upload.PublicID).Msg("cleanup of failed enrollment image failed")
		}
		return nil, err
	}

	enc := Encoding{
		UserID:             user.ID,
		StudentCode:        user.Code(),
		Vector:             encoded.Encoding,
		ImageURL:           upload.SecureURL,
		CloudinaryPublicID: &upload.PublicID,
	}
	if encoded.SpoofScore != nil || len(encoded.FaceBox) > 0 {
		enc.Metadata = &Metadata{SpoofScore: encoded.SpoofScore, FaceBox: encoded.FaceBox}
	}

	saved, err := s.repo.Upsert(ctx, enc)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetFaceEnrollment(ctx, user.ID, true, &upload.SecureURL, &upload.PublicID); err != nil {
		return nil, err
	}

	s.log.Info().Str("student", user.Code()).Msg("face enrolled")
	return &EnrollResult{
		StudentCode:  saved.StudentCode,
		EnrollmentID: saved.ID,
		ImageURL:     saved.ImageURL,
		SpoofScore:   encoded.SpoofScore,
	}, nil
}

// Match is a recognition claim relayed from the collaborator. The backend
// does not verify the claim; mark-attendance applies the self-service check.
type Match struct {
	StudentCode string   `json:"studentId"`
	Name        string   `json:"name"`
	Department  *string  `json:"department,omitempty"`
	Email       string   `json:"email"`
	Confidence  float64  `json:"confidence"`
	Distance    *float64 `json:"distance,omitempty"`
	SpoofScore  *float64 `json:"spoof_score,omitempty"`
}

// Recognize forwards the image plus all active templates to the collaborator
// and relays the claimed identity. With zero active templates the call is
// short-circuited before reaching the collaborator.
func (s *Service) Recognize(ctx context.Context, callerID string, image []byte, filename string) (*Match, error) {
	if len(image) == 0 {
		return nil, apperrors.Validation("please upload an image")
	}

	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, apperrors.Validation("no enrolled students found, please enroll faces first")
	}

	if s.face.MockMode() {
		return s.mockRecognize(ctx, callerID, active)
	}
	if s.images == nil {
		return nil, apperrors.Unavailable("image storage not configured")
	}

	upload, err := s.images.UploadBytes(image, filename)
	if err != nil {
		s.log.Error().Err(err).Msg("recognition image upload failed")
		return nil, apperrors.Unavailable("image upload failed")
	}
	// Recognition snapshots are transient; remove them regardless of outcome.
	defer func() {
		if derr := s.images.Destroy(upload.PublicID); derr != nil {
			s.log.Warn().Err(derr).Str("public_id", upload.PublicID).Msg("cleanup of recognition image failed")
		}
	}()

	known := make([]faceclient.KnownEncoding, 0, len(active))
	byCode := make(map[string]*Encoding, len(active))
	for i := range active {
		known = append(known, faceclient.KnownEncoding{
			StudentID: active[i].StudentCode,
			Encoding:  active[i].Vector,
		})
		byCode[active[i].StudentCode] = &active[i]
	}

	claim, err := s.face.Recognize(ctx, upload.SecureURL, known)
	if err != nil {
		return nil, err
	}
	if _, ok := byCode[claim.StudentCode]; !ok {
		return nil, apperrors.NotFound("recognized student not found in database")
	}
	return s.matchFor(ctx, claim.StudentCode, claim.Confidence, claim.Distance, claim.SpoofScore)
}

// mockRecognize resolves to the calling user when they are enrolled, which
// keeps demo installs from impersonating other students.
func (s *Service) mockRecognize(ctx context.Context, callerID string, active []Encoding) (*Match, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.Code() == "" {
		return nil, apperrors.NotFound("current user is not enrolled for face recognition")
	}
	for i := range active {
		if active[i].StudentCode == caller.Code() {
			return s.matchFor(ctx, caller.Code(), faceclient.MockConfidence(), nil, nil)
		}
	}
	return nil, apperrors.NotFound("current user is not enrolled for face recognition")
}

func (s *Service) matchFor(ctx context.Context, code string, confidence float64, distance, spoof *float64) (*Match, error) {
	user, err := s.users.GetByStudentCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("recognized student not found in database")
	}
	return &Match{
		StudentCode: code,
		Name:        user.Name,
		Department:  user.Department,
		Email:       user.Email,
		Confidence:  confidence,
		Distance:    distance,
		SpoofScore:  spoof,
	}, nil
}

// Status reports the caller's enrollment state.
type Status struct {
	IsFaceEnrolled bool       `json:"isFaceEnrolled"`
	HasEncoding    bool       `json:"hasEncoding"`
	EnrollmentDate *time.Time `json:"enrollmentDate,omitempty"`
}

// StatusFor returns the caller's enrollment status.
func (s *Service) StatusFor(ctx context.Context, callerID string) (Status, error) {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return Status{}, err
	}
	if user == nil {
		return Status{}, apperrors.NotFound("user not found")
	}

	enc, err := s.repo.GetActiveByUserID(ctx, user.ID)
	if err != nil {
		return Status{}, err
	}
	st := Status{IsFaceEnrolled: user.IsFaceEnrolled, HasEncoding: enc != nil}
	if enc != nil {
		st.EnrollmentDate = &enc.EnrolledAt
	}
	return st, nil
}

// ClearResult reports the bulk-clear maintenance operation.
type ClearResult struct {
	EncodingsCleared int64 `json:"encodingsCleared"`
	UsersCleared     int64 `json:"usersCleared"`
}

// ClearAll deactivates every template and resets every account's enrollment
// flag. Used for environment resets, not part of normal request flow.
func (s *Service) ClearAll(ctx context.Context) (ClearResult, error) {
	encodings, err := s.repo.DeactivateAll(ctx)
	if err != nil {
		return ClearResult{}, err
	}
	users, err := s.users.ClearFaceEnrollment(ctx)
	if err != nil {
		return ClearResult{}, fmt.Errorf("encodings cleared but user flags failed: %w", err)
	}
	s.log.Info().Int64("encodings", encodings).Int64("users", users).Msg("face enrollment data cleared")
	return ClearResult{EncodingsCleared: encodings, UsersCleared: users}, nil
}
