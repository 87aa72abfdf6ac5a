package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/masapledge/pledge"
	"github.com/masapledge/pledge/internal/domain"
	"github.com/masapledge/pledge/internal/infra/database/models"
)

type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create inserts the certificate. A hit on either unique constraint (ID or
// submission) surfaces as domain.ErrDuplicateKey; nothing is ever updated in
// place.
func (r *CertificateRepository) Create(ctx context.Context, cert *pledge.Certificate) error {
	row := models.Certificate{
		CertificateID: cert.CertificateID,
		SubmissionID:  cert.SubmissionID,
		FullName:      cert.FullName,
		PledgeTitle:   cert.PledgeTitle,
		Email:         cert.Email,
		Mobile:        cert.Mobile,
		IssuedAt:      cert.IssuedAt,
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *CertificateRepository) GetByID(ctx context.Context, certificateID string) (*pledge.Certificate, error) {
	var row models.Certificate
	err := r.db.WithContext(ctx).
		Where("certificate_id = ?", certificateID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "certificate"}
	}
	if err != nil {
		return nil, err
	}

	return certificateFromRow(row), nil
}

func (r *CertificateRepository) GetBySubmissionID(ctx context.Context, submissionID string) (*pledge.Certificate, error) {
	var row models.Certificate
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "certificate"}
	}
	if err != nil {
		return nil, err
	}

	return certificateFromRow(row), nil
}

// FindByContact matches email case-insensitively or mobile exactly.
func (r *CertificateRepository) FindByContact(ctx context.Context, contact string) ([]pledge.Certificate, error) {
	var rows []models.Certificate
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ? OR mobile = ?", strings.ToLower(contact), contact).
		Order("c_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	certs := make([]pledge.Certificate, 0, len(rows))
	for _, row := range rows {
		certs = append(certs, *certificateFromRow(row))
	}
	return certs, nil
}

func certificateFromRow(row models.Certificate) *pledge.Certificate {
	return &pledge.Certificate{
		CertificateID: row.CertificateID,
		SubmissionID:  row.SubmissionID,
		FullName:      row.FullName,
		PledgeTitle:   row.PledgeTitle,
		Email:         row.Email,
		Mobile:        row.Mobile,
		IssuedAt:      row.IssuedAt,
	}
}
