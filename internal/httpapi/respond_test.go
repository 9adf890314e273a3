package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.Validation("bad"), http.StatusBadRequest},
		{apperrors.New(apperrors.ErrUnauthorized, "no"), http.StatusUnauthorized},
		{apperrors.Forbidden("no"), http.StatusForbidden},
		{apperrors.NotFound("gone"), http.StatusNotFound},
		{apperrors.Conflict("dup"), http.StatusConflict},
		{apperrors.Unavailable("down"), http.StatusServiceUnavailable},
		{apperrors.Timeout("slow"), http.StatusGatewayTimeout},
		{errors.New("sql: driver closed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusOf(tc.err); got != tc.want {
			t.Errorf("statusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func failRecorder(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fail(c, err)
	return w
}

func TestFailHidesInternalDetails(t *testing.T) {
	w := failRecorder(errors.New("pq: connection reset"))

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if body["message"] != "something went wrong" {
		t.Errorf("message = %q, internal detail leaked", body["message"])
	}
	if body["success"] != false {
		t.Errorf("success = %v", body["success"])
	}
}

func TestFailAttachesExistingRecord(t *testing.T) {
	existing := map[string]string{"id": "att1"}
	w := failRecorder(apperrors.WithData(apperrors.ErrConflict, "already marked today", existing))

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d", w.Code)
	}
	record, ok := body["existingRecord"].(map[string]any)
	if !ok || record["id"] != "att1" {
		t.Errorf("existingRecord = %v", body["existingRecord"])
	}
}
