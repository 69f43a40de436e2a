package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

const maxListLimit = 200

func (s *Server) handleListRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []entity.Run{}})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.abort(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.runs.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("server.runs.list_failed", "error", err)
		s.abort(c, http.StatusInternalServerError, "failed to list runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
