package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/async"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

const formFieldFiles = "files"

type createResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (s *Server) handleCreateExtraction(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.abort(c, http.StatusBadRequest, "expected multipart form with field \"files\"")
		return
	}
	headers := form.File[formFieldFiles]

	inputs := make([]entity.Input, 0, len(headers))
	for _, fh := range headers {
		in, err := readUpload(fh, s.maxUploadBytes)
		if err != nil {
			s.logger.Warn("server.upload.read_failed", "name", fh.Filename, "error", err)
			s.abort(c, http.StatusBadRequest, err.Error())
			return
		}
		inputs = append(inputs, in)
	}

	if err := s.pipeline.Validate(inputs); err != nil {
		resp := errorResponse{Error: common.ErrValidation.Error()}
		var verrs common.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Violations = verrs.Messages()
		} else {
			resp.Violations = []string{err.Error()}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return
	}
	if s.queue == nil {
		s.abort(c, http.StatusServiceUnavailable, "extraction queue is not running")
		return
	}

	runID := uuid.New()
	s.registry.Create(runID, len(inputs))
	job := async.Job{
		RunID:       runID,
		Inputs:      inputs,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(c.Request.Context()),
	}
	if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
		s.registry.Finish(runID, constants.RunStatusFailed, nil, err)
		s.abort(c, http.StatusServiceUnavailable, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, createResponse{ID: runID, Status: string(constants.RunStatusQueued)})
}

// readUpload loads one part into memory. Parts larger than limit are only
// read far enough to report their size.
func readUpload(fh *multipart.FileHeader, limit int64) (entity.Input, error) {
	in := entity.Input{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
	}
	if limit > 0 && fh.Size > limit {
		return in, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	in.Content, err = io.ReadAll(f)
	if err != nil {
		return in, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return in, nil
}
