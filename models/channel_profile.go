package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChannelProfileConfig holds provider-specific settings for a sender profile
type ChannelProfileConfig struct {
	// SMTP / email
	SMTPHost *string `json:"smtp_host,omitempty"`
	SMTPPort *int    `json:"smtp_port,omitempty"`
	Username *string `json:"username,omitempty"`

	// Messaging providers
	APIEndpoint *string `json:"api_endpoint,omitempty"`
	APIKeyRef   *string `json:"api_key_ref,omitempty"`

	// Presentation
	DisplayName *string `json:"display_name,omitempty"`
}

// Value implements the driver.Valuer interface for ChannelProfileConfig
func (c ChannelProfileConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for ChannelProfileConfig
func (c *ChannelProfileConfig) Scan(value any) error {
	if value == nil {
		*c = ChannelProfileConfig{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ChannelProfileConfig", value)
	}

	return json.Unmarshal(bytes, c)
}

// ChannelProfile represents a configured sender identity for one channel type
type ChannelProfile struct {
	ID             uint                 `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uk_channel_profiles_uuid" json:"uuid"`
	ChannelType    ChannelType          `gorm:"type:varchar(30);not null;uniqueIndex:uk_channel_profiles_type_identity,priority:1" json:"channel_type"`
	SenderIdentity string               `gorm:"type:varchar(255);not null;uniqueIndex:uk_channel_profiles_type_identity,priority:2" json:"sender_identity"`
	Config         ChannelProfileConfig `gorm:"type:jsonb;not null;default:'{}'" json:"config"`
	IsActive       bool                 `gorm:"not null;default:true;index:idx_channel_profiles_is_active" json:"is_active"`
	CreatedAt      time.Time            `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      *time.Time           `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (ChannelProfile) TableName() string {
	return "channel_profiles"
}

// BeforeCreate is called before creating a new record
func (p *ChannelProfile) BeforeCreate() error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (p *ChannelProfile) BeforeUpdate() error {
	now := time.Now().UTC()
	p.UpdatedAt = &now
	return nil
}

// ChannelProfileFilter represents filter criteria for channel profiles
type ChannelProfileFilter struct {
	ID             *uint        `json:"id,omitempty"`
	UUID           *uuid.UUID   `json:"uuid,omitempty"`
	ChannelType    *ChannelType `json:"channel_type,omitempty"`
	SenderIdentity *string      `json:"sender_identity,omitempty"`
	IsActive       *bool        `json:"is_active,omitempty"`
}
