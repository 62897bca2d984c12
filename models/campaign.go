package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CampaignStatus represents the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusProcessing CampaignStatus = "processing"
	CampaignStatusSent       CampaignStatus = "sent"
	CampaignStatusFailed     CampaignStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusProcessing,
		CampaignStatusSent, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// CampaignPriority controls the order campaigns are picked up for delivery
type CampaignPriority string

const (
	CampaignPriorityLow    CampaignPriority = "low"
	CampaignPriorityMedium CampaignPriority = "medium"
	CampaignPriorityHigh   CampaignPriority = "high"
)

// String returns the string representation of the priority
func (p CampaignPriority) String() string {
	return string(p)
}

// Valid checks if the priority is valid
func (p CampaignPriority) Valid() bool {
	switch p {
	case CampaignPriorityLow, CampaignPriorityMedium, CampaignPriorityHigh:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignPriority
func (p *CampaignPriority) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = CampaignPriority(v)
	case []byte:
		*p = CampaignPriority(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignPriority", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignPriority
func (p CampaignPriority) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid CampaignPriority: %s", p)
	}
	return string(p), nil
}

// AudienceType selects which recipient population a campaign targets
type AudienceType string

const (
	AudienceTypeAll         AudienceType = "all"
	AudienceTypeDepartment  AudienceType = "department"
	AudienceTypeNewStudents AudienceType = "newStudents"
	AudienceTypeCustom      AudienceType = "custom"
)

// String returns the string representation of the audience type
func (a AudienceType) String() string {
	return string(a)
}

// Valid checks if the audience type is valid
func (a AudienceType) Valid() bool {
	switch a {
	case AudienceTypeAll, AudienceTypeDepartment,
		AudienceTypeNewStudents, AudienceTypeCustom:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for AudienceType
func (a *AudienceType) Scan(value any) error {
	if value == nil {
		*a = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*a = AudienceType(v)
	case []byte:
		*a = AudienceType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AudienceType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AudienceType
func (a AudienceType) Value() (driver.Value, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid AudienceType: %s", a)
	}
	return string(a), nil
}

// AudienceFilters narrows the targeted population for department audiences
type AudienceFilters struct {
	Departments []string `json:"departments,omitempty"`
	Stage       *string  `json:"stage,omitempty"`
	Semester    *string  `json:"semester,omitempty"`
}

// Value implements the driver.Valuer interface for AudienceFilters
func (f AudienceFilters) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for AudienceFilters
func (f *AudienceFilters) Scan(value any) error {
	if value == nil {
		*f = AudienceFilters{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AudienceFilters", value)
	}

	return json.Unmarshal(bytes, f)
}

// Campaign represents a communications campaign in the database
type Campaign struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Title            string           `gorm:"type:varchar(255);not null" json:"title"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	Priority         CampaignPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	AudienceType     AudienceType     `gorm:"type:varchar(20);not null" json:"audience_type"`
	AudienceFilters  AudienceFilters  `gorm:"type:jsonb;not null;default:'{}'" json:"audience_filters"`
	CustomRecipients pq.StringArray   `gorm:"type:text[]" json:"custom_recipients,omitempty"`
	Status           CampaignStatus   `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaigns_status" json:"status"`
	TotalRecipients  int              `gorm:"not null;default:0" json:"total_recipients"`
	SentAt           *time.Time       `json:"sent_at,omitempty"`
	ClaimedAt        *time.Time       `gorm:"index:idx_campaigns_claimed_at" json:"-"`
	FinalizeToken    *uuid.UUID       `gorm:"type:uuid" json:"-"`
	CreatedBy        uint             `gorm:"not null;index:idx_campaigns_created_by" json:"created_by"`
	CreatedAt        time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Channels []CampaignChannel `gorm:"foreignKey:CampaignID;references:ID" json:"channels,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.Priority == "" {
		c.Priority = CampaignPriorityMedium
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate() error {
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

// IsEditable checks if the campaign can still be modified
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft
}

// IsTerminal checks if the campaign reached a final status
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusSent || c.Status == CampaignStatusFailed
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusProcessing
	case CampaignStatusProcessing:
		return newStatus == CampaignStatusSent ||
			newStatus == CampaignStatusFailed
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint             `json:"id,omitempty"`
	UUID          *uuid.UUID        `json:"uuid,omitempty"`
	Status        *CampaignStatus   `json:"status,omitempty"`
	Priority      *CampaignPriority `json:"priority,omitempty"`
	AudienceType  *AudienceType     `json:"audience_type,omitempty"`
	CreatedBy     *uint             `json:"created_by,omitempty"`
	Title         *string           `json:"title,omitempty"`
	CreatedAfter  *time.Time        `json:"created_after,omitempty"`
	CreatedBefore *time.Time        `json:"created_before,omitempty"`
	SentAfter     *time.Time        `json:"sent_after,omitempty"`
	SentBefore    *time.Time        `json:"sent_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusProcessing:
		return "Processing"
	case CampaignStatusSent:
		return "Sent"
	case CampaignStatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
