package models

// StatusNotification tells an applicant their application status changed.
type StatusNotification struct {
	ApplicationID string
	Status        Status
	Recipient     string
	Email         string
	Phone         string
}
