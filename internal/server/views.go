package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
	"github.com/joseph-ayodele/kk-extractor/internal/pipeline"
	"github.com/joseph-ayodele/kk-extractor/internal/repository"
)

type failureView struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type summaryView struct {
	Successful  []entity.ExtractionOutcome `json:"successful"`
	Failed      []failureView              `json:"failed"`
	InputErrors []entity.InputError        `json:"input_errors"`
	Empty       int                        `json:"empty"`
}

type runView struct {
	ID       uuid.UUID               `json:"id"`
	Status   constants.RunStatus     `json:"status"`
	Progress entity.ProgressSnapshot `json:"progress"`
	Error    string                  `json:"error,omitempty"`
	Summary  *summaryView            `json:"summary,omitempty"`
}

func newSummaryView(res *pipeline.Result) *summaryView {
	if res == nil {
		return nil
	}
	v := &summaryView{
		Successful:  res.Summary.Successful,
		Failed:      make([]failureView, 0, len(res.Summary.Failed)),
		InputErrors: res.InputErrors,
		Empty:       res.Summary.Empty,
	}
	for _, o := range res.Summary.Failed {
		v.Failed = append(v.Failed, failureView{Name: o.SourceName, Reason: o.FailureReason})
	}
	if v.InputErrors == nil {
		v.InputErrors = []entity.InputError{}
	}
	return v
}

func newRunView(st runState) runView {
	return runView{
		ID:       st.ID,
		Status:   st.Status,
		Progress: st.Progress,
		Error:    st.Error,
		Summary:  newSummaryView(st.Result),
	}
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// lookup finds a run in memory first, then in run history.
func (s *Server) lookup(ctx context.Context, id uuid.UUID) (runState, error) {
	if st, ok := s.registry.Get(id); ok {
		return st, nil
	}
	if s.runs == nil {
		return runState{}, repository.ErrRunNotFound
	}
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return runState{}, err
	}
	stored, err := s.runs.Outcomes(ctx, id)
	if err != nil {
		return runState{}, err
	}
	outcomes := make([]entity.ExtractionOutcome, 0, len(stored))
	for _, o := range stored {
		ex, err := o.Extraction()
		if err != nil {
			return runState{}, err
		}
		outcomes = append(outcomes, ex)
	}

	st := runState{
		ID:        run.ID,
		Status:    constants.RunStatus(run.Status),
		CreatedAt: run.StartedAt,
		Progress:  entity.ProgressSnapshot{Processed: len(outcomes), Total: run.Total, Current: constants.ProgressDone, Done: run.FinishedAt != nil},
	}
	if run.FinishedAt != nil {
		st.Result = &pipeline.Result{
			RunID:       run.ID,
			Outcomes:    outcomes,
			InputErrors: []entity.InputError{},
			Summary:     pipeline.Aggregate(outcomes),
		}
	} else {
		st.Progress.Current = constants.ProgressStarting
	}
	return st, nil
}

func (s *Server) handleGetExtraction(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		s.abort(c, http.StatusBadRequest, "id must be a UUID")
		return
	}
	st, err := s.lookup(c.Request.Context(), id)
	if err != nil {
		s.abortLookup(c, id, err)
		return
	}
	c.JSON(http.StatusOK, newRunView(st))
}

func (s *Server) abortLookup(c *gin.Context, id uuid.UUID, err error) {
	status := common.HTTPStatus(err)
	if status == http.StatusNotFound {
		s.abort(c, status, "extraction not found")
		return
	}
	s.logger.Error("server.lookup.failed", "run_id", id, "error", err)
	s.abort(c, status, "failed to load extraction")
}

// handleEvents streams progress as server-sent events: one "progress" event
// per snapshot, then a final "done" event carrying the run view.
func (s *Server) handleEvents(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		s.abort(c, http.StatusBadRequest, "id must be a UUID")
		return
	}
	ch, unsubscribe, ok := s.registry.Subscribe(id)
	if !ok {
		st, err := s.lookup(c.Request.Context(), id)
		if err != nil {
			s.abortLookup(c, id, err)
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.SSEvent("done", newRunView(st))
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	ctx := c.Request.Context()
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case snap, open := <-ch:
			if !open {
				if st, ok := s.registry.Get(id); ok {
					c.SSEvent("done", newRunView(st))
					c.Writer.Flush()
				}
				return
			}
			c.SSEvent("progress", snap)
			c.Writer.Flush()
		case <-keepalive.C:
			_, _ = c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
