package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChannelType identifies the delivery medium of a campaign channel
type ChannelType string

const (
	ChannelTypeEmail              ChannelType = "email"
	ChannelTypeWhatsApp           ChannelType = "whatsapp"
	ChannelTypeSMS                ChannelType = "sms"
	ChannelTypeSystemNotification ChannelType = "systemNotification"
	ChannelTypeSystemAlert        ChannelType = "systemAlert"
)

// String returns the string representation of the channel type
func (t ChannelType) String() string {
	return string(t)
}

// Valid checks if the channel type is valid
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelTypeEmail, ChannelTypeWhatsApp, ChannelTypeSMS,
		ChannelTypeSystemNotification, ChannelTypeSystemAlert:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ChannelType
func (t *ChannelType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = ChannelType(v)
	case []byte:
		*t = ChannelType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ChannelType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ChannelType
func (t ChannelType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid ChannelType: %s", t)
	}
	return string(t), nil
}

// ChannelStatus represents the delivery status of one campaign channel
type ChannelStatus string

const (
	ChannelStatusPending    ChannelStatus = "pending"
	ChannelStatusProcessing ChannelStatus = "processing"
	ChannelStatusSent       ChannelStatus = "sent"
	ChannelStatusFailed     ChannelStatus = "failed"
)

// String returns the string representation of the status
func (s ChannelStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ChannelStatus) Valid() bool {
	switch s {
	case ChannelStatusPending, ChannelStatusProcessing,
		ChannelStatusSent, ChannelStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ChannelStatus
func (s *ChannelStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ChannelStatus(v)
	case []byte:
		*s = ChannelStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ChannelStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ChannelStatus
func (s ChannelStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ChannelStatus: %s", s)
	}
	return string(s), nil
}

// IsTerminal checks if the channel reached a final status
func (s ChannelStatus) IsTerminal() bool {
	return s == ChannelStatusSent || s == ChannelStatusFailed
}

// CampaignChannel represents one delivery medium attached to a campaign
type CampaignChannel struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_campaign_channels_uuid" json:"uuid"`
	CampaignID      uint          `gorm:"not null;index:idx_campaign_channels_campaign_id;uniqueIndex:uk_campaign_channels_campaign_type,priority:1" json:"campaign_id"`
	ChannelType     ChannelType   `gorm:"type:varchar(30);not null;uniqueIndex:uk_campaign_channels_campaign_type,priority:2" json:"channel_type"`
	SenderProfileID *uint         `gorm:"index:idx_campaign_channels_profile_id" json:"sender_profile_id,omitempty"`
	Status          ChannelStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_campaign_channels_status" json:"status"`
	LastError       *string       `gorm:"type:text" json:"last_error,omitempty"`
	LastAttemptAt   *time.Time    `json:"last_attempt_at,omitempty"`
	CreatedAt       time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt       *time.Time    `json:"updated_at,omitempty"`

	// Relations
	Campaign      *Campaign       `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	SenderProfile *ChannelProfile `gorm:"foreignKey:SenderProfileID;references:ID" json:"sender_profile,omitempty"`
}

// TableName returns the table name for the model
func (CampaignChannel) TableName() string {
	return "campaign_channels"
}

// BeforeCreate is called before creating a new record
func (c *CampaignChannel) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ChannelStatusPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *CampaignChannel) BeforeUpdate() error {
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the channel can transition to the given status
func (c *CampaignChannel) CanTransitionTo(newStatus ChannelStatus) bool {
	switch c.Status {
	case ChannelStatusPending:
		return newStatus == ChannelStatusProcessing ||
			newStatus == ChannelStatusSent ||
			newStatus == ChannelStatusFailed
	case ChannelStatusProcessing:
		return newStatus == ChannelStatusSent ||
			newStatus == ChannelStatusFailed
	default:
		return false
	}
}

// CampaignChannelFilter represents filter criteria for campaign channels
type CampaignChannelFilter struct {
	ID              *uint          `json:"id,omitempty"`
	UUID            *uuid.UUID     `json:"uuid,omitempty"`
	CampaignID      *uint          `json:"campaign_id,omitempty"`
	ChannelType     *ChannelType   `json:"channel_type,omitempty"`
	SenderProfileID *uint          `json:"sender_profile_id,omitempty"`
	Status          *ChannelStatus `json:"status,omitempty"`
}
