package enrollment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/cloudinary"
	"hostelhub/internal/faceclient"
	"hostelhub/internal/identity"
)

type fakeRepo struct {
	byCode map[string]Encoding
}

func (f *fakeRepo) Upsert(_ context.Context, e Encoding) (Encoding, error) {
	if f.byCode == nil {
		f.byCode = map[string]Encoding{}
	}
	e.ID = "enc-" + e.StudentCode
	e.IsActive = true
	f.byCode[e.StudentCode] = e
	return e, nil
}

func (f *fakeRepo) GetActiveByUserID(_ context.Context, userID string) (*Encoding, error) {
	for _, e := range f.byCode {
		if e.UserID == userID && e.IsActive {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListActive(context.Context) ([]Encoding, error) {
	var out []Encoding
	for _, e := range f.byCode {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeactivateAll(context.Context) (int64, error) {
	n := int64(len(f.byCode))
	f.byCode = map[string]Encoding{}
	return n, nil
}

type fakeUsers struct {
	users        map[string]*identity.User
	enrolledSet  []string
	clearedUsers int64
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*identity.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) GetByStudentCode(_ context.Context, code string) (*identity.User, error) {
	for _, u := range f.users {
		if u.Code() == code {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) SetFaceEnrollment(_ context.Context, id string, enrolled bool, _, _ *string) error {
	f.enrolledSet = append(f.enrolledSet, id)
	return nil
}

func (f *fakeUsers) ClearFaceEnrollment(context.Context) (int64, error) {
	f.clearedUsers = int64(len(f.enrolledSet))
	f.enrolledSet = nil
	return f.clearedUsers, nil
}

type fakeRecognizer struct {
	mock           bool
	encodeCalls    int
	recognizeCalls int
	claim          string
}

func (f *fakeRecognizer) Encode(_ context.Context, _, studentCode string) (*faceclient.EncodeResult, error) {
	f.encodeCalls++
	return &faceclient.EncodeResult{StudentCode: studentCode, Encoding: []float64{0.1, 0.2}}, nil
}

func (f *fakeRecognizer) Recognize(context.Context, string, []faceclient.KnownEncoding) (*faceclient.RecognizeResult, error) {
	f.recognizeCalls++
	return &faceclient.RecognizeResult{StudentCode: f.claim, Confidence: 93}, nil
}

func (f *fakeRecognizer) MockMode() bool { return f.mock }

type fakeImages struct {
	uploads   int
	destroyed []string
}

func (f *fakeImages) UploadBytes(_ []byte, filename string) (*cloudinary.UploadResult, error) {
	f.uploads++
	return &cloudinary.UploadResult{PublicID: "pub-" + filename, SecureURL: "https://cdn/" + filename}, nil
}

func (f *fakeImages) Destroy(publicID string) error {
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

func strPtr(s string) *string { return &s }

func directory() *fakeUsers {
	return &fakeUsers{users: map[string]*identity.User{
		"u1": {ID: "u1", Name: "Asha Rao", Email: "asha@example.com", StudentCode: strPtr("ST101"), IsActive: true},
		"u2": {ID: "u2", Name: "Vikram Nair", Email: "vikram@example.com", StudentCode: strPtr("ST102"), IsActive: true},
	}}
}

func TestEnrollUpsertsAndFlagsUser(t *testing.T) {
	repo := &fakeRepo{}
	users := directory()
	face := &fakeRecognizer{}
	images := &fakeImages{}
	s := NewService(repo, users, face, images, zerolog.Nop())

	result, err := s.Enroll(context.Background(), "u1", []byte{1, 2, 3}, "face.jpg")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if result.StudentCode != "ST101" {
		t.Errorf("studentCode = %q", result.StudentCode)
	}
	if len(users.enrolledSet) != 1 || users.enrolledSet[0] != "u1" {
		t.Errorf("enrollment flag not set: %v", users.enrolledSet)
	}

	// Re-enrolling silently replaces the template; still one record.
	if _, err := s.Enroll(context.Background(), "u1", []byte{4, 5, 6}, "face2.jpg"); err != nil {
		t.Fatalf("re-Enroll: %v", err)
	}
	if len(repo.byCode) != 1 {
		t.Errorf("templates for ST101 = %d, want 1", len(repo.byCode))
	}
}

func TestEnrollWithoutImageStore(t *testing.T) {
	s := NewService(&fakeRepo{}, directory(), &fakeRecognizer{}, nil, zerolog.Nop())
	_, err := s.Enroll(context.Background(), "u1", []byte{1}, "face.jpg")
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestRecognizeShortCircuitsOnZeroTemplates(t *testing.T) {
	face := &fakeRecognizer{}
	images := &fakeImages{}
	s := NewService(&fakeRepo{}, directory(), face, images, zerolog.Nop())

	_, err := s.Recognize(context.Background(), "u1", []byte{1}, "probe.jpg")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if face.recognizeCalls != 0 {
		t.Errorf("collaborator called %d times with zero templates", face.recognizeCalls)
	}
	if images.uploads != 0 {
		t.Errorf("uploaded %d images before the short-circuit", images.uploads)
	}
}

func TestRecognizeRelaysClaim(t *testing.T) {
	repo := &fakeRepo{}
	users := directory()
	face := &fakeRecognizer{claim: "ST102"}
	images := &fakeImages{}
	s := NewService(repo, users, face, images, zerolog.Nop())

	ctx := context.Background()
	if _, err := s.Enroll(ctx, "u2", []byte{1}, "face.jpg"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	match, err := s.Recognize(ctx, "u1", []byte{2}, "probe.jpg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if match.StudentCode != "ST102" || match.Name != "Vikram Nair" {
		t.Errorf("unexpected match %+v", match)
	}
	// Recognition snapshots are transient and must be destroyed.
	if len(images.destroyed) == 0 {
		t.Error("recognition snapshot was not cleaned up")
	}
}

func TestMockRecognizeResolvesCaller(t *testing.T) {
	repo := &fakeRepo{}
	users := directory()
	face := &fakeRecognizer{mock: true}
	s := NewService(repo, users, face, &fakeImages{}, zerolog.Nop())

	ctx := context.Background()
	if _, err := s.Enroll(ctx, "u1", []byte{1}, "face.jpg"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	match, err := s.Recognize(ctx, "u1", []byte{2}, "probe.jpg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if match.StudentCode != "ST101" {
		t.Errorf("mock mode must resolve the caller, got %q", match.StudentCode)
	}
	if face.recognizeCalls != 0 {
		t.Errorf("mock mode must not call the collaborator, got %d calls", face.recognizeCalls)
	}
}

func TestMockRecognizeUnenrolledCaller(t *testing.T) {
	repo := &fakeRepo{}
	users := directory()
	s := NewService(repo, users, &fakeRecognizer{mock: true}, &fakeImages{}, zerolog.Nop())

	ctx := context.Background()
	if _, err := s.Enroll(ctx, "u2", []byte{1}, "face.jpg"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	_, err := s.Recognize(ctx, "u1", []byte{2}, "probe.jpg")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found for unenrolled caller", err)
	}
}

func TestClearAll(t *testing.T) {
	repo := &fakeRepo{}
	users := directory()
	s := NewService(repo, users, &fakeRecognizer{}, &fakeImages{}, zerolog.Nop())

	ctx := context.Background()
	if _, err := s.Enroll(ctx, "u1", []byte{1}, "a.jpg"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Enroll(ctx, "u2", []byte{2}, "b.jpg"); err != nil {
		t.Fatal(err)
	}

	result, err := s.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if result.EncodingsCleared != 2 || result.UsersCleared != 2 {
		t.Errorf("unexpected result %+v", result)
	}
}
