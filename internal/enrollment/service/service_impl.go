package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/clock"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	"github.com/pathshala-labs/pathshala/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("enrollment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
	}
}

// EnrollFree grants access to a free published course. Paid courses must go
// through checkout.
func (s *Service) EnrollFree(ctx context.Context, userID, courseID snowflake.ID) (*domain.Enrollment, error) {
	course, err := s.catalogRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, catalogdomain.ErrNotFound
	}
	if !course.Enrollable() {
		return nil, catalogdomain.ErrNotPurchasable
	}
	if course.IsPaid {
		return nil, catalogdomain.ErrPaymentNeeded
	}

	created, err := s.repo.Grant(ctx, s.db, s.genID.Generate(), userID, courseID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, domain.ErrAlreadyEnrolled
	}

	return s.repo.FindActive(ctx, s.db, userID, courseID)
}

func (s *Service) IsEnrolled(ctx context.Context, userID, courseID snowflake.ID) (bool, error) {
	enrollment, err := s.repo.FindActive(ctx, s.db, userID, courseID)
	if err != nil {
		return false, err
	}
	return enrollment != nil, nil
}

type ListResponse struct {
	pagination.PageInfo
	Enrollments []*domain.Enrollment `json:"enrollments"`
}

func (s *Service) List(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (ListResponse, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 15
	}

	filter := domain.ListFilter{UserID: userID, PageSize: limit}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor.EnrolledAt != "" {
			filter.PageToken = cursor.EnrolledAt
		}
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return ListResponse{}, err
	}

	rows, info := pagination.BuildPageInfo(rows, limit, func(e *domain.Enrollment) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			EnrolledAt: e.EnrolledAt.Format("2006-01-02T15:04:05.999999Z07:00"),
		})
		return token
	})

	return ListResponse{PageInfo: info, Enrollments: rows}, nil
}
