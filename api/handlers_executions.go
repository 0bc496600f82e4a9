package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPendingLimit = 1000

func (s *Server) handleGetPendingExecutions(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPendingLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be in [1, 1000]"})
			return
		}
		limit = n
	}

	height := s.backend.Height()
	pending, err := s.backend.PendingExecutions(limit)
	if err != nil {
		s.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, PendingExecutionsResponse{Height: height, Executions: pending})
}

func (s *Server) handleGetExecution(c *gin.Context) {
	addr, ok := s.addressParam(c)
	if !ok {
		return
	}
	view, err := s.backend.GetExecution(addr)
	if err != nil {
		s.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, executionResponse(view))
}
