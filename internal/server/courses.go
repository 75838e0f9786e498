package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
)

func (s *Server) GetCourse(c *gin.Context) {
	var (
		course *catalogdomain.Course
		err    error
	)

	if id, parseErr := parseID(c.Param("course_id")); parseErr == nil {
		course, err = s.catalogRepo.FindByID(c.Request.Context(), s.db, id)
	} else {
		course, err = s.catalogRepo.FindBySlug(c.Request.Context(), s.db, c.Param("course_id"))
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if course == nil {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}
