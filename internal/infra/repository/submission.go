package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/infra/database/models"
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *pledge.PledgeSubmission) error {
	row := models.Submission{
		SubmissionID:     submission.SubmissionID,
		PledgeID:         submission.PledgeID,
		FullName:         submission.FullName,
		ParticipantType:  string(submission.ParticipantType),
		OrganizationName: submission.OrganizationName,
		Email:            submission.Email,
		Mobile:           submission.Mobile,
		Country:          submission.Country,
		Location:         submission.Location,
		Verified:         submission.Verified,
		ConsentGiven:     submission.ConsentGiven,
		CDate:            submission.CreatedAt,
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *SubmissionRepository) Get(ctx context.Context, submissionID string) (*pledge.PledgeSubmission, error) {
	var row models.Submission
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "submission"}
	}
	if err != nil {
		return nil, err
	}

	return submissionFromRow(row), nil
}

func submissionFromRow(row models.Submission) *pledge.PledgeSubmission {
	return &pledge.PledgeSubmission{
		SubmissionID:     row.SubmissionID,
		PledgeID:         row.PledgeID,
		FullName:         row.FullName,
		ParticipantType:  pledge.ParticipantType(row.ParticipantType),
		OrganizationName: row.OrganizationName,
		Email:            row.Email,
		Mobile:           row.Mobile,
		Country:          row.Country,
		Location:         row.Location,
		Verified:         row.Verified,
		ConsentGiven:     row.ConsentGiven,
		CreatedAt:        row.CDate,
	}
}
