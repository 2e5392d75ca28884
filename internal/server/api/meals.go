package api

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"harukcal/backend/internal/vision"
)

// maxUploadBytes caps the accepted image size (8 MiB).
const maxUploadBytes = 8 << 20

// MealsHandler forwards uploaded food images to the vision analyzer.
type MealsHandler struct {
	analyzer *vision.Analyzer
}

// NewMealsHandler creates a new handler instance.
func NewMealsHandler(analyzer *vision.Analyzer) *MealsHandler {
	return &MealsHandler{analyzer: analyzer}
}

// Analyze handles POST /v1/meals/analyze with a multipart "file" field.
func (h *MealsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Warn().Err(err).Msg("Invalid multipart upload")
		http.Error(w, "Invalid multipart upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing 'file' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded image")
		http.Error(w, "Failed to read uploaded image", http.StatusInternalServerError)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	log.Info().
		Str("filename", header.Filename).
		Str("mime_type", mimeType).
		Int("bytes", len(image)).
		Msg("Analyzing food image")

	analysis, err := h.analyzer.AnalyzeFood(r.Context(), image, mimeType)
	if err != nil {
		log.Error().Err(err).Msg("Food image analysis failed")
		writeJSON(w, r, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"result": analysis})
}
