package models

import (
	"time"
)

// Submission rows are write-once; rows are never updated after creation.
type Submission struct {
	SubmissionID     string    `json:"submissionId" gorm:"primaryKey;type:text"`
	PledgeID         string    `json:"pledgeId" gorm:"type:text;index;not null"`
	FullName         string    `json:"fullName" gorm:"type:text;not null"`
	ParticipantType  string    `json:"participantType" gorm:"type:text;not null"`
	OrganizationName string    `json:"organizationName" gorm:"type:text"`
	Email            string    `json:"email" gorm:"type:text;index;not null"`
	Mobile           string    `json:"mobile" gorm:"type:text;index;not null"`
	Country          string    `json:"country" gorm:"type:text"`
	Location         string    `json:"location" gorm:"type:text"`
	Verified         bool      `json:"verified" gorm:"type:boolean;not null;default:false"`
	ConsentGiven     bool      `json:"consentGiven" gorm:"type:boolean;not null;default:false"`
	CDate            time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Certificate rows are permanent: no updates, no deletes. The unique index on
// SubmissionID enforces at-most-once issuance per submission; the primary key
// on CertificateID makes an ID collision a constraint error instead of an
// overwrite.
type Certificate struct {
	CertificateID string     `json:"certificateId" gorm:"primaryKey;type:text"`
	SubmissionID  string     `json:"submissionId" gorm:"type:text;index:certificate_submission,unique;not null"`
	Submission    Submission `json:"-" gorm:"foreignKey:SubmissionID;references:SubmissionID"`
	FullName      string     `json:"fullName" gorm:"type:text;not null"`
	PledgeTitle   string     `json:"pledgeTitle" gorm:"type:text;not null"`
	Email         string     `json:"email" gorm:"type:text;index;not null"`
	Mobile        string     `json:"mobile" gorm:"type:text;index;not null"`
	IssuedAt      time.Time  `json:"issuedAt" gorm:"type:timestamp with time zone;not null"`
	CDate         time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
