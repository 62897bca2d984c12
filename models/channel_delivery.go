package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the outcome of one delivery attempt
type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// String returns the string representation of the status
func (s DeliveryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusSuccess, DeliveryStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// DeliveryPayload captures what was handed to the provider for one attempt
type DeliveryPayload struct {
	Subject        *string `json:"subject,omitempty"`
	Body           *string `json:"body,omitempty"`
	SenderIdentity *string `json:"sender_identity,omitempty"`
	RecipientCount *int    `json:"recipient_count,omitempty"`
}

// Value implements the driver.Valuer interface for DeliveryPayload
func (p DeliveryPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for DeliveryPayload
func (p *DeliveryPayload) Scan(value any) error {
	if value == nil {
		*p = DeliveryPayload{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DeliveryPayload", value)
	}

	return json.Unmarshal(bytes, p)
}

// ChannelDelivery is an immutable audit record of one delivery attempt on one
// campaign channel. Rows are only ever inserted.
type ChannelDelivery struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_channel_deliveries_uuid" json:"uuid"`
	CampaignID       uint            `gorm:"not null;index:idx_channel_deliveries_campaign_id" json:"campaign_id"`
	ChannelID        uint            `gorm:"not null;index:idx_channel_deliveries_channel_id" json:"channel_id"`
	Recipient        *string         `gorm:"type:varchar(255)" json:"recipient,omitempty"`
	Payload          DeliveryPayload `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Status           DeliveryStatus  `gorm:"type:varchar(20);not null;index:idx_channel_deliveries_status" json:"status"`
	ErrorMessage     *string         `gorm:"type:text" json:"error_message,omitempty"`
	ProviderResponse *string         `gorm:"type:text" json:"provider_response,omitempty"`
	CreatedAt        time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_channel_deliveries_created_at" json:"created_at"`

	// Relations
	Campaign *Campaign        `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Channel  *CampaignChannel `gorm:"foreignKey:ChannelID;references:ID" json:"channel,omitempty"`
}

// TableName returns the table name for the model
func (ChannelDelivery) TableName() string {
	return "channel_deliveries"
}

// BeforeCreate is called before creating a new record
func (d *ChannelDelivery) BeforeCreate() error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ChannelDeliveryFilter represents filter criteria for delivery records
type ChannelDeliveryFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	CampaignID    *uint           `json:"campaign_id,omitempty"`
	ChannelID     *uint           `json:"channel_id,omitempty"`
	Status        *DeliveryStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
