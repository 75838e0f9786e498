package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pathshala-labs/pathshala/internal/authz"
)

func (s *Server) CompleteLesson(c *gin.Context) {
	actor, ok := s.requireAction(c, authz.ActionLessonComplete)
	if !ok {
		return
	}

	courseID, err := parseID(c.Param("course_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	lessonID, err := parseID(c.Param("lesson_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	progress, err := s.progressSvc.CompleteLesson(c.Request.Context(), snowflake.ID(actor.UserID), courseID, lessonID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": progress,
		"percent":  progress.Percent(),
	})
}

func (s *Server) GetProgress(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	courseID, err := parseID(c.Param("course_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	progress, err := s.progressSvc.Get(c.Request.Context(), snowflake.ID(actor.UserID), courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": progress,
		"percent":  progress.Percent(),
	})
}
