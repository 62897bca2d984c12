package models

// DirectoryCapabilities describes which optional columns the students table
// actually carries in this deployment. The schema differs across campuses, so
// the columns are probed at startup instead of assumed.
type DirectoryCapabilities struct {
	HasPhone              bool `json:"has_phone"`
	HasEmergencyPhone     bool `json:"has_emergency_phone"`
	HasFullNameAr         bool `json:"has_full_name_ar"`
	HasFullName           bool `json:"has_full_name"`
	HasFirstName          bool `json:"has_first_name"`
	HasLastName           bool `json:"has_last_name"`
	HasMajor              bool `json:"has_major"`
	HasAdmissionType      bool `json:"has_admission_type"`
	HasSemester           bool `json:"has_semester"`
	HasPaymentStatus      bool `json:"has_payment_status"`
	HasStatus             bool `json:"has_status"`
	HasRegistrationStatus bool `json:"has_registration_status"`
}

// HasAnyPhone reports whether any phone-bearing column exists
func (c DirectoryCapabilities) HasAnyPhone() bool {
	return c.HasPhone || c.HasEmergencyPhone
}

// HasAnyName reports whether any name-bearing column exists
func (c DirectoryCapabilities) HasAnyName() bool {
	return c.HasFullNameAr || c.HasFullName || c.HasFirstName || c.HasLastName
}

// HasNewStudentSignal reports whether the newStudents audience can be resolved
func (c DirectoryCapabilities) HasNewStudentSignal() bool {
	return c.HasPaymentStatus || c.HasStatus || c.HasRegistrationStatus
}

// Recipient is one resolved member of a campaign audience
type Recipient struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Department *string `json:"department,omitempty"`
}
