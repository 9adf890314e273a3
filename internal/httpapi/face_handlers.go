package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostelhub/internal/apperrors"
	"hostelhub/internal/auth"
)

// imageFromForm reads the uploaded image field from a multipart request.
func imageFromForm(c *gin.Context) ([]byte, string, error) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		return nil, "", apperrors.Validation("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", apperrors.Validation("could not read uploaded image")
	}
	return data, header.Filename, nil
}

func (h *Handler) enrollFace(c *gin.Context) {
	image, filename, err := imageFromForm(c)
	if err != nil {
		fail(c, err)
		return
	}

	claims := auth.FromContext(c)
	result, err := h.faces.Enroll(c.Request.Context(), claims.Subject, image, filename)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "face enrolled successfully", "enrollment": result})
}

func (h *Handler) recognizeFace(c *gin.Context) {
	image, filename, err := imageFromForm(c)
	if err != nil {
		fail(c, err)
		return
	}

	claims := auth.FromContext(c)
	match, err := h.faces.Recognize(c.Request.Context(), claims.Subject, image, filename)
	if err != nil {
		recognitionCalls.WithLabelValues("miss").Inc()
		fail(c, err)
		return
	}

	recognitionCalls.WithLabelValues("hit").Inc()
	ok(c, http.StatusOK, gin.H{"match": match})
}

func (h *Handler) faceStatus(c *gin.Context) {
	claims := auth.FromContext(c)
	status, err := h.faces.StatusFor(c.Request.Context(), claims.Subject)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"status": status})
}

func (h *Handler) faceHealth(c *gin.Context) {
	if err := h.face.Health(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "face service reachable", "mock": h.face.MockMode()})
}

func (h *Handler) clearFaces(c *gin.Context) {
	result, err := h.faces.ClearAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "face enrollment data cleared", "cleared": result})
}
