package pledge

import (
	"time"
)

type ParticipantType string

const (
	ParticipantIndividual   ParticipantType = "individual"
	ParticipantOrganization ParticipantType = "organization"
)

// PledgeDefinition is a catalog entry describing a pledge a participant can
// take. Definitions are authored outside this service and read-only here.
type PledgeDefinition struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Category string `json:"category" yaml:"category"`
	OathText string `json:"oathText" yaml:"oathText"`
	Icon     string `json:"icon,omitempty" yaml:"icon"`
}

// PledgeSubmission is the durable record of a completed pledge. Submissions
// are immutable once written; corrections require a new submission.
type PledgeSubmission struct {
	SubmissionID     string          `json:"submissionId"`
	PledgeID         string          `json:"pledgeId"`
	FullName         string          `json:"fullName"`
	ParticipantType  ParticipantType `json:"participantType"`
	OrganizationName string          `json:"organizationName,omitempty"`
	Email            string          `json:"email"`
	Mobile           string          `json:"mobile"`
	Country          string          `json:"country"`
	Location         string          `json:"location,omitempty"`
	Verified         bool            `json:"verified"`
	ConsentGiven     bool            `json:"consentGiven"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Certificate is the issued credential. It references its submission but does
// not own it; once issued it is never mutated or deleted.
type Certificate struct {
	CertificateID string    `json:"certificateId"`
	SubmissionID  string    `json:"submissionId"`
	FullName      string    `json:"fullName"`
	PledgeTitle   string    `json:"pledgeTitle"`
	Email         string    `json:"email"`
	Mobile        string    `json:"mobile"`
	IssuedAt      time.Time `json:"issuedAt"`
}

// Event is published on the event channel when a certificate is issued.
type Event struct {
	Type          string    `json:"type"`
	CertificateID string    `json:"certificateId"`
	PledgeID      string    `json:"pledgeId"`
	Timestamp     time.Time `json:"timestamp"`
}

const EventCertificateIssued = "pledge.certificate.issued"

// WellKnownPledge describes the service endpoints for discovery.
type WellKnownPledge struct {
	Version   string            `json:"version"`
	Site      string            `json:"site"`
	Endpoints map[string]string `json:"endpoints"`
}
