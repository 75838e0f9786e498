package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pathshala-labs/pathshala/internal/authz"
	certificatedomain "github.com/pathshala-labs/pathshala/internal/certificate/domain"
)

func (s *Server) IssueCertificate(c *gin.Context) {
	actor, ok := s.requireAction(c, authz.ActionCertificateIssue)
	if !ok {
		return
	}

	courseID, err := parseID(c.Param("course_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cert, err := s.certificateSvc.Issue(c.Request.Context(), snowflake.ID(actor.UserID), courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificate": cert})
}

func (s *Server) GetCertificate(c *gin.Context) {
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

	exists, err := s.certificateSvc.Exists(c.Request.Context(), snowflake.ID(actor.UserID), courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !exists {
		AbortWithError(c, certificatedomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issued": true})
}

// VerifyCertificate is the public lookup by certificate number.
func (s *Server) VerifyCertificate(c *gin.Context) {
	cert, err := s.certificateSvc.VerifyByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"certificate": cert,
	})
}
