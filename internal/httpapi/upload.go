package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxAudioUpload bounds one recorded message (multipart form incl. audio).
const maxAudioUpload = 25 << 20

type audioMessageResponse struct {
	ConversationID string `json:"conversation_id"`
	Transcript     string `json:"transcript"`
	Reply          string `json:"reply"`
	SharedSummary  string `json:"shared_summary,omitempty"`
}

// handleAudioMessage accepts a recorded audio message, transcribes it and
// runs the transcript through the same turn pipeline as a typed message.
// Optional form text is prepended to the transcript.
func (s *Server) handleAudioMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if strings.TrimSpace(conversationID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_conversation_id", "missing conversation id")
		return
	}
	if s.transcriber == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "transcription not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	participantID := strings.TrimSpace(r.FormValue("participant_id"))
	if participantID == "" {
		respondError(w, http.StatusBadRequest, "missing_participant_id", "form field participant_id is required")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_audio", "form file audio is required")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable_audio", err.Error())
		return
	}

	transcript, err := s.transcriber.Transcribe(r.Context(), audio, s.cfg.TranscribeModel)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("transcription", "transcribe_failed").Inc()
		respondError(w, http.StatusBadGateway, "transcription_failed", err.Error())
		return
	}

	text := transcript
	if extra := strings.TrimSpace(r.FormValue("text")); extra != "" {
		text = extra + "\n" + transcript
	}
	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "empty_transcript", "nothing to say after transcription")
		return
	}

	outcome, err := s.gateway.UserMessage(r.Context(), conversationID, participantID, text)
	if err != nil {
		status, code := turnErrorStatus(err)
		respondError(w, status, code, err.Error())
		return
	}

	resp := audioMessageResponse{
		ConversationID: conversationID,
		Transcript:     transcript,
		Reply:          outcome.Private.Text,
	}
	if outcome.Shared != nil {
		resp.SharedSummary = outcome.Shared.Text
	}
	respondJSON(w, http.StatusOK, resp)
}
