package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/export"
)

func (s *Server) handleExport(c *gin.Context) {
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
	if st.Result == nil {
		if st.Status == constants.RunStatusFailed {
			s.abort(c, http.StatusUnprocessableEntity, export.ErrNothingToExport.Error())
			return
		}
		s.abort(c, http.StatusConflict, "extraction is still running")
		return
	}

	data, err := s.exporter.WorkbookXLSX(st.Result.Outcomes)
	if errors.Is(err, export.ErrNothingToExport) {
		s.abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("export.xlsx.failed", "run_id", id, "error", err)
		s.abort(c, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.DefaultExportFileName))
	c.Data(http.StatusOK, constants.MIMETypeXLSX, data)
}
