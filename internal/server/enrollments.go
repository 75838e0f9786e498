package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pathshala-labs/pathshala/internal/authz"
	"github.com/pathshala-labs/pathshala/pkg/db/pagination"
)

func (s *Server) EnrollFree(c *gin.Context) {
	actor, ok := s.requireAction(c, authz.ActionCourseEnroll)
	if !ok {
		return
	}

	courseID, err := parseID(c.Param("course_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	enrollment, err := s.enrollmentSvc.EnrollFree(c.Request.Context(), snowflake.ID(actor.UserID), courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "enrolled",
		"enrollment": enrollment,
	})
}

func (s *Server) ListEnrollments(c *gin.Context) {
	actor, ok := s.requireAction(c, authz.ActionEnrollmentList)
	if !ok {
		return
	}

	page := pagination.Pagination{PageToken: c.Query("page_token")}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			page.PageSize = size
		}
	}

	resp, err := s.enrollmentSvc.List(c.Request.Context(), snowflake.ID(actor.UserID), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
