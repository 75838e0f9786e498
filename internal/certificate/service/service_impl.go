package service

import (
	"context"
	"crypto/rand"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"github.com/pathshala-labs/pathshala/internal/certificate/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	enrollmentdomain "github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	progressdomain "github.com/pathshala-labs/pathshala/internal/progress/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	CatalogRepo    catalogdomain.Repository
	EnrollmentRepo enrollmentdomain.Repository
	ProgressRepo   progressdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	catalogRepo    catalogdomain.Repository
	enrollmentRepo enrollmentdomain.Repository
	progressRepo   progressdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("certificate.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		catalogRepo:    p.CatalogRepo,
		enrollmentRepo: p.EnrollmentRepo,
		progressRepo:   p.ProgressRepo,
	}
}

// Issue creates the certificate for a fully completed course. Reissuing
// returns the existing certificate unchanged.
func (s *Service) Issue(ctx context.Context, userID, courseID snowflake.ID) (*domain.Certificate, error) {
	course, err := s.catalogRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, catalogdomain.ErrNotFound
	}
	if !course.Enrollable() {
		return nil, domain.ErrNotEligible
	}

	enrollment, err := s.enrollmentRepo.FindActive(ctx, s.db, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, domain.ErrNotEligible
	}

	progress, err := s.progressRepo.FindProgress(ctx, s.db, userID, courseID)
	if err != nil {
		return nil, err
	}
	if progress == nil || !progress.Complete() {
		return nil, domain.ErrCourseNotDone
	}

	now := s.clock.Now()
	cert := &domain.Certificate{
		ID:       s.genID.Generate(),
		UserID:   userID,
		CourseID: courseID,
		Number:   ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		IssuedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.repo.Insert(ctx, tx, cert)
		if err != nil {
			return err
		}
		if !created {
			existing, err := s.repo.FindByUserCourse(ctx, tx, userID, courseID)
			if err != nil {
				return err
			}
			cert = existing
			return nil
		}
		return s.enrollmentRepo.MarkCompleted(ctx, tx, userID, courseID, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("certificate issued",
		zap.Int64("user_id", int64(userID)),
		zap.Int64("course_id", int64(courseID)),
		zap.String("number", cert.Number),
	)
	return cert, nil
}

func (s *Service) VerifyByNumber(ctx context.Context, number string) (*domain.Certificate, error) {
	cert, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrNotFound
	}
	return cert, nil
}

func (s *Service) Exists(ctx context.Context, userID, courseID snowflake.ID) (bool, error) {
	return s.repo.Exists(ctx, s.db, userID, courseID)
}
