package server

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// mediaSize is the length of every generated audio file.
const mediaSize = 64 * 1024

// MediaHandler serves placeholder audio for catalog items at /media/{audioId}.mp3. It supports HEAD
// and range requests.
type MediaHandler struct {
	sandbox  *Sandbox
	modified time.Time
}

// NewMediaHandler creates a [MediaHandler] for the sandbox catalog.
func NewMediaHandler(s *Sandbox) *MediaHandler {
	return &MediaHandler{sandbox: s, modified: time.Now()}
}

// Routes returns the HTTP routes this handler serves.
func (h *MediaHandler) Routes() []string {
	return []string{"/media/"}
}

// ServeHTTP writes the generated file for a known audio id and 404s otherwise.
func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := path.Base(r.URL.Path)
	audioID, err := strconv.Atoi(strings.TrimSuffix(name, path.Ext(name)))
	if err != nil {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}
	if _, ok := h.sandbox.Book(audioID); !ok {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, name, h.modified, bytes.NewReader(placeholderAudio(audioID)))
}

// placeholderAudio is a deterministic byte pattern unique to audioID.
func placeholderAudio(audioID int) []byte {
	header := []byte(fmt.Sprintf("ID3audx:%d;", audioID))
	data := make([]byte, mediaSize)
	n := copy(data, header)
	for i := n; i < len(data); i++ {
		data[i] = byte((i * (audioID + 7)) % 251)
	}
	return data
}
