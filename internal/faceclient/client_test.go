package faceclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hostelhub/internal/apperrors"
)

func TestEncodeMockMode(t *testing.T) {
	c := New("http://unused", true)
	result, err := c.Encode(context.Background(), "", "ST101")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if result.StudentCode != "ST101" {
		t.Errorf("studentCode = %q", result.StudentCode)
	}
	if len(result.Encoding) != 128 {
		t.Errorf("mock vector length = %d, want 128", len(result.Encoding))
	}
}

func TestEncodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/encode" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["studentId"] != "ST101" {
			t.Errorf("studentId = %q", req["studentId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"encoding": []float64{0.5, 0.25},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	result, err := c.Encode(context.Background(), "https://cdn/img.jpg", "ST101")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(result.Encoding) != 2 {
		t.Errorf("encoding = %v", result.Encoding)
	}
}

func TestEncodeNoFaceDetected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "no face detected in image",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.Encode(context.Background(), "https://cdn/img.jpg", "ST101")
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestRecognizeForwardsKnownSet(t *testing.T) {
	var got struct {
		ImageURL  string          `json:"image_url"`
		Encodings []KnownEncoding `json:"encodings"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"studentId":  "ST102",
			"confidence": 91.5,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	known := []KnownEncoding{
		{StudentID: "ST101", Encoding: []float64{0.1}},
		{StudentID: "ST102", Encoding: []float64{0.2}},
	}
	result, err := c.Recognize(context.Background(), "https://cdn/probe.jpg", known)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.StudentCode != "ST102" || result.Confidence != 91.5 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(got.Encodings) != 2 {
		t.Errorf("service received %d encodings, want the full set of 2", len(got.Encodings))
	}
}

func TestRecognizeMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "face not recognized"})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.Recognize(context.Background(), "https://cdn/probe.jpg", nil)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRemoteErrorMessageRelayed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "model not loaded"})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.Encode(context.Background(), "https://cdn/img.jpg", "ST101")
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if err.Error() != "model not loaded" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	c.HTTP.Timeout = 20 * time.Millisecond
	_, err := c.Encode(context.Background(), "https://cdn/img.jpg", "ST101")
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestServiceDownClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, false)
	_, err := c.Encode(context.Background(), "https://cdn/img.jpg", "ST101")
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestMockConfidenceRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		if c := MockConfidence(); c < 85 || c > 100 {
			t.Fatalf("MockConfidence out of range: %v", c)
		}
	}
}
