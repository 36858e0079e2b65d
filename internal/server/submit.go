package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	eforms "github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/pipeline"
	"github.com/eforms/eforms/internal/security"
	"github.com/eforms/eforms/internal/submit"
)

// maxParseMemory bounds the in-memory portion of multipart parsing; larger
// uploads spill to temp files which normalization picks up by path.
const maxParseMemory = 10 << 20

// handleSubmit runs the full gate + pipeline flow for one submission and
// maps the outcome onto the response contract: field errors for
// user-correctable defects, opaque codes for security rejections, and the
// template's success mode on acceptance.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}

	tpl, err := s.loadTemplate(sub.FormID)
	if err != nil {
		writeError(w, http.StatusBadRequest, eforms.CodeInvalidFormID)
		return
	}

	rc := submit.NewRequestContext(s.provider, s.logger)
	outcome := s.processor.Process(r.Context(), rc, tpl, sub)

	switch {
	case outcome.OK:
		body := map[string]any{"ok": true, "mode": tpl.Success.Mode}
		if tpl.Success.Mode == "redirect" {
			body["redirect_url"] = tpl.Success.RedirectURL
		} else {
			body["message"] = tpl.Success.Message
		}
		writeJSON(w, http.StatusOK, body)
	case outcome.Errors != nil && outcome.Code == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"ok":     false,
			"errors": outcome.Errors.Export(),
		})
	case outcome.Code == eforms.CodeThrottled:
		w.Header().Set("Retry-After", strconv.Itoa(outcome.RetryAfter))
		writeError(w, http.StatusTooManyRequests, outcome.Code)
	case outcome.Code == eforms.CodeOriginForbidden:
		writeError(w, http.StatusForbidden, outcome.Code)
	case outcome.Code == eforms.CodeStorageUnavailable:
		writeError(w, http.StatusServiceUnavailable, outcome.Code)
	default:
		writeError(w, http.StatusForbidden, outcome.Code)
	}
}

// decodeSubmission parses the form body (urlencoded or multipart) into the
// transport-independent submission shape.
func (s *Server) decodeSubmission(w http.ResponseWriter, r *http.Request) (submit.Submission, bool) {
	var sub submit.Submission
	if err := r.ParseMultipartForm(maxParseMemory); err != nil && err != http.ErrNotMultipart {
		writeError(w, http.StatusBadRequest, eforms.CodeType)
		return sub, false
	}

	sub.Post = map[string][]string(r.PostForm)
	sub.Meta = security.MetaFromHTTP(r)
	sub.FormID = firstParam(sub.Post, "form_id")
	if sub.FormID == "" {
		writeError(w, http.StatusBadRequest, eforms.CodeInvalidFormID)
		return sub, false
	}

	if r.MultipartForm != nil {
		sub.Files = make(map[string][]pipeline.RawUpload)
		for key, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				sub.Files[key] = append(sub.Files[key], pipeline.RawUpload{
					TmpName: tmpPath(fh),
					Name:    fh.Filename,
					Size:    fh.Size,
				})
			}
		}
	}
	return sub, true
}

func firstParam(post map[string][]string, key string) string {
	if vs := post[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// tmpPath spools one multipart part to a temp file and returns its path,
// the uniform place downstream consumers (dispatch, scanning) read from.
// An empty path marks a part that could not be spooled; the item still
// carries its metadata for validation.
func tmpPath(fh *multipart.FileHeader) string {
	src, err := fh.Open()
	if err != nil {
		return ""
	}
	defer src.Close()
	tmp, err := os.CreateTemp("", "eforms-upload-*")
	if err != nil {
		return ""
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return ""
	}
	return tmp.Name()
}
