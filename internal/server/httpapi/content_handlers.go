package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/dmitrijs2005/lms/internal/server/services"
	"github.com/gorilla/mux"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

var mediaKinds = []string{models.MediaImage, models.MediaAudio, models.MediaVideo}

type contentView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Topic       string    `json:"topic"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Audio       string    `json:"audio"`
	Video       string    `json:"video"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func newContentView(c *models.Content) contentView {
	return contentView{
		ID:          c.ID,
		Title:       c.Title,
		Topic:       c.Topic,
		Description: c.Description,
		Image:       c.Image,
		Audio:       c.Audio,
		Video:       c.Video,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
	}
}

func newContentViews(items []*models.Content) []contentView {
	out := make([]contentView, 0, len(items))
	for _, c := range items {
		out = append(out, newContentView(c))
	}
	return out
}

// readContentForm parses the multipart content form. The returned closer
// releases the uploaded files and must always be called.
func (h *Handlers) readContentForm(w http.ResponseWriter, r *http.Request) (services.ContentInput, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return services.ContentInput{}, noop, err
	}

	in := services.ContentInput{
		Title:       r.PostFormValue("title"),
		Topic:       r.PostFormValue("topic"),
		Description: r.PostFormValue("description"),
	}

	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	for _, kind := range mediaKinds {
		file, header, err := r.FormFile(kind)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			closeAll()
			return services.ContentInput{}, noop, err
		}
		files = append(files, file)
		if header.Filename == "" || header.Size == 0 {
			continue
		}
		in.Media = append(in.Media, services.MediaUpload{
			Kind:        kind,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
			Size:        header.Size,
		})
	}
	return in, closeAll, nil
}

func (h *Handlers) uploadContent(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	in, release, err := h.readContentForm(w, r)
	defer release()
	if err != nil {
		writeFormError(w, err)
		return
	}

	c, err := h.contents.Create(r.Context(), identity, in)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Content uploaded successfully",
		"content_id": c.ID,
	})
}

func (h *Handlers) listContents(w http.ResponseWriter, r *http.Request) {
	items, err := h.contents.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newContentViews(items))
}

func (h *Handlers) listPublicContents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := h.contents.ListPublic(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newContentViews(items))
}

func (h *Handlers) getContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.contents.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Content not found")
		return
	}
	writeJSON(w, http.StatusOK, newContentView(c))
}

func (h *Handlers) updateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	in, release, err := h.readContentForm(w, r)
	defer release()
	if err != nil {
		writeFormError(w, err)
		return
	}

	if _, err := h.contents.Update(r.Context(), id, in); err != nil {
		h.writeServiceError(w, r, err, "Content not found")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Content updated successfully"})
}

func (h *Handlers) deleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.contents.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Content not found")
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Content deleted successfully"})
}

// media redirects to a short-lived presigned URL of the stored object.
func (h *Handlers) media(w http.ResponseWriter, r *http.Request) {
	url, err := h.contents.MediaURL(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		h.writeServiceError(w, r, err, "File not found")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeDetail(w, http.StatusBadRequest, "invalid multipart form")
}
