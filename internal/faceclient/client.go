// Package faceclient talks to the external face recognition service. The
// service is an untrusted black box: it receives an image URL plus the known
// encodings and claims a match. Authorization decisions never happen here.
package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"hostelhub/internal/apperrors"
)

// KnownEncoding pairs a student code with their stored template vector.
type KnownEncoding struct {
	StudentID string    `json:"studentId"`
	Encoding  []float64 `json:"encoding"`
}

// EncodeResult is the response from the /encode endpoint.
type EncodeResult struct {
	StudentCode string
	Encoding    []float64
	SpoofScore  *float64
	FaceBox     []int
	Message     string
}

// RecognizeResult is the claimed identity from the /recognize endpoint.
type RecognizeResult struct {
	StudentCode string
	Confidence  float64
	Distance    *float64
	SpoofScore  *float64
}

// Client calls the face recognition service over HTTP. Mock mode fabricates
// results so the rest of the system can run without the service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Mock    bool
}

// New creates a client. Face processing can take a while, hence the long
// timeout.
func New(baseURL string, mock bool) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Mock:    mock,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// MockMode reports whether results are fabricated locally.
func (c *Client) MockMode() bool { return c.Mock }

// Encode requests a face template for an enrolled image.
func (c *Client) Encode(ctx context.Context, imageURL, studentCode string) (*EncodeResult, error) {
	if c.Mock {
		return &EncodeResult{
			StudentCode: studentCode,
			Encoding:    mockVector(),
			Message:     "face encoded (mock mode)",
		}, nil
	}
	if imageURL == "" {
		return nil, apperrors.Validation("image url required")
	}

	body, _ := json.Marshal(map[string]string{
		"image_url": imageURL,
		"studentId": studentCode,
	})
	var out struct {
		Success      bool      `json:"success"`
		Encoding     []float64 `json:"encoding"`
		SpoofScore   *float64  `json:"spoof_score"`
		FaceLocation []int     `json:"face_location"`
		Message      string    `json:"message"`
	}
	if err := c.post(ctx, "/encode", body, &out); err != nil {
		return nil, err
	}
	if !out.Success || len(out.Encoding) == 0 {
		msg := out.Message
		if msg == "" {
			msg = "no face detected in image"
		}
		return nil, apperrors.Unavailable(msg)
	}
	return &EncodeResult{
		StudentCode: studentCode,
		Encoding:    out.Encoding,
		SpoofScore:  out.SpoofScore,
		FaceBox:     out.FaceLocation,
		Message:     out.Message,
	}, nil
}

// Recognize forwards the image and the full active template set and relays
// whatever identity the service claims. No confidence threshold is applied
// here; the mark-attendance self-check is the trust boundary.
func (c *Client) Recognize(ctx context.Context, imageURL string, known []KnownEncoding) (*RecognizeResult, error) {
	body, _ := json.Marshal(map[string]any{
		"image_url": imageURL,
		"encodings": known,
	})
	var out struct {
		Success    bool     `json:"success"`
		StudentID  string   `json:"studentId"`
		Confidence float64  `json:"confidence"`
		Distance   *float64 `json:"distance"`
		SpoofScore *float64 `json:"spoof_score"`
		Message    string   `json:"message"`
	}
	if err := c.post(ctx, "/recognize", body, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.StudentID == "" {
		msg := out.Message
		if msg == "" {
			msg = "face not recognized"
		}
		return nil, apperrors.NotFound(msg)
	}
	return &RecognizeResult{
		StudentCode: out.StudentID,
		Confidence:  out.Confidence,
		Distance:    out.Distance,
		SpoofScore:  out.SpoofScore,
	}, nil
}

// Health checks if the face service is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Mock {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apperrors.Newf(apperrors.ErrUnavailable, "face service unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var remote struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &remote)
		if remote.Message != "" {
			return apperrors.Unavailable(remote.Message)
		}
		return apperrors.Newf(apperrors.ErrUnavailable, "face service error %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode face service response: %w", err)
	}
	return nil
}

// classify maps transport failures to user-facing error kinds: timeouts ask
// for a retry, refused connections point at the service being down.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Timeout("face recognition server timeout, please try again")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("face recognition server timeout, please try again")
	}
	return apperrors.Unavailable("face recognition server is not running, please contact administrator")
}

// mockVector fabricates a 128-dim template for demo installs.
func mockVector() []float64 {
	v := make([]float64, 128)
	for i := range v {
		v[i] = rand.Float64()
	}
	return v
}

// MockConfidence returns a demo confidence in the 85-100 range.
func MockConfidence() float64 {
	return 85 + rand.Float64()*15
}
