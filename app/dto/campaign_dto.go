package dto

import (
	"time"
)

// AudienceFiltersDTO narrows a department audience
type AudienceFiltersDTO struct {
	Departments []string `json:"departments,omitempty"`
	Stage       *string  `json:"stage,omitempty"`
	Semester    *string  `json:"semester,omitempty"`
}

// CreateCampaignRequest represents the request to create a new campaign draft
type CreateCampaignRequest struct {
	CreatedBy        uint               `json:"-"`
	Title            string             `json:"title" validate:"required,min=1,max=255"`
	Message          string             `json:"message" validate:"required,min=1"`
	Priority         *string            `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AudienceType     string             `json:"audience_type" validate:"required,oneof=all department newStudents custom"`
	AudienceFilters  AudienceFiltersDTO `json:"audience_filters,omitempty"`
	CustomRecipients []string           `json:"custom_recipients,omitempty" validate:"omitempty,dive,min=1"`
	Channels         []string           `json:"channels" validate:"required,min=1,dive,oneof=email whatsapp sms systemNotification systemAlert"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ListCampaignsRequest represents the request to list campaigns
type ListCampaignsRequest struct {
	Page     int     `json:"page" query:"page"`
	PageSize int     `json:"page_size" query:"page_size"`
	Status   *string `json:"status,omitempty" query:"status" validate:"omitempty,oneof=draft processing sent failed"`
	Title    *string `json:"title,omitempty" query:"title"`
}

// CampaignChannelDTO represents one channel of a campaign in responses
type CampaignChannelDTO struct {
	UUID           string     `json:"uuid"`
	ChannelType    string     `json:"channel_type"`
	Status         string     `json:"status"`
	SenderIdentity *string    `json:"sender_identity,omitempty"`
	LastError      *string    `json:"last_error,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	UUID            string               `json:"uuid"`
	Title           string               `json:"title"`
	Message         string               `json:"message"`
	Priority        string               `json:"priority"`
	AudienceType    string               `json:"audience_type"`
	AudienceFilters AudienceFiltersDTO   `json:"audience_filters"`
	Status          string               `json:"status"`
	TotalRecipients int                  `json:"total_recipients"`
	SentAt          *time.Time           `json:"sent_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	Channels        []CampaignChannelDTO `json:"channels"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Campaigns  []CampaignDTO `json:"campaigns"`
	Pagination Pagination    `json:"pagination"`
}

// SendCampaignRequest represents the request to queue a draft for delivery
type SendCampaignRequest struct {
	UUID      string `json:"-"`
	CreatedBy uint   `json:"-"`
}

// SendCampaignResponse represents the response to queue a draft for delivery
type SendCampaignResponse struct {
	UUID            string `json:"uuid"`
	Status          string `json:"status"`
	TotalRecipients int    `json:"total_recipients"`
}

// ManualDeliveryRequest records a human-confirmed out-of-band send on one channel
type ManualDeliveryRequest struct {
	CampaignUUID string  `json:"-"`
	ChannelUUID  string  `json:"channel_uuid" validate:"required,uuid"`
	Recipient    string  `json:"recipient" validate:"required,max=190"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ManualDeliveryResponse represents the response to a manual delivery record
type ManualDeliveryResponse struct {
	DeliveryUUID  string `json:"delivery_uuid"`
	ChannelUUID   string `json:"channel_uuid"`
	ChannelStatus string `json:"channel_status"`
}

// PreviewRecipientsRequest resolves an audience without creating a campaign
type PreviewRecipientsRequest struct {
	AudienceType     string             `json:"audience_type" validate:"required,oneof=all department newStudents custom"`
	AudienceFilters  AudienceFiltersDTO `json:"audience_filters,omitempty"`
	CustomRecipients []string           `json:"custom_recipients,omitempty"`
	Limit            int                `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
}

// RecipientDTO represents one resolved audience member
type RecipientDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Department *string `json:"department,omitempty"`
}

// PreviewRecipientsResponse represents the response to an audience preview
type PreviewRecipientsResponse struct {
	Recipients []RecipientDTO `json:"recipients"`
	Total      int            `json:"total"`
	Truncated  bool           `json:"truncated"`
}

// ChannelProfileDTO represents a sender profile in responses
type ChannelProfileDTO struct {
	UUID           string  `json:"uuid"`
	ChannelType    string  `json:"channel_type"`
	SenderIdentity string  `json:"sender_identity"`
	DisplayName    *string `json:"display_name,omitempty"`
	IsActive       bool    `json:"is_active"`
}

// ListChannelProfilesResponse represents the response to list sender profiles
type ListChannelProfilesResponse struct {
	Profiles []ChannelProfileDTO `json:"profiles"`
}
