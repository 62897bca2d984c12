// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Campaign, error)
	ByIDWithChannels(ctx context.Context, id uint) (*models.Campaign, error)
	ByFilter(ctx context.Context, filter models.CampaignFilter, limit, offset int) ([]*models.Campaign, error)
	Count(ctx context.Context, filter models.CampaignFilter) (int64, error)
	ClaimProcessing(ctx context.Context, limit int) ([]*models.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) error
	Finalize(ctx context.Context, campaignID uint, status models.CampaignStatus, deliveredDelta int, finalizeToken uuid.UUID) error
}

// CampaignChannelRepository defines operations for campaign channels
type CampaignChannelRepository interface {
	Repository[models.CampaignChannel, models.CampaignChannelFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.CampaignChannel, error)
	ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignChannel, error)
	LockByID(ctx context.Context, id uint) (*models.CampaignChannel, error)
	UpdateStatus(ctx context.Context, channelID uint, status models.ChannelStatus, lastError *string) error
	BindProfile(ctx context.Context, channelID uint, profileID uint) error
}

// ChannelProfileRepository defines operations for channel profiles
type ChannelProfileRepository interface {
	Repository[models.ChannelProfile, models.ChannelProfileFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.ChannelProfile, error)
	ListActive(ctx context.Context) ([]*models.ChannelProfile, error)
	ByTypeAndIdentity(ctx context.Context, channelType models.ChannelType, senderIdentity string) (*models.ChannelProfile, error)
}

// ChannelDeliveryRepository defines operations for delivery records
type ChannelDeliveryRepository interface {
	Repository[models.ChannelDelivery, models.ChannelDeliveryFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.ChannelDelivery, error)
	CountByCampaignAndStatus(ctx context.Context, campaignID uint, status models.DeliveryStatus) (int64, error)
}

// StudentDirectoryRepository resolves campaign audiences against the students
// table, whose schema varies by deployment.
type StudentDirectoryRepository interface {
	Capabilities(ctx context.Context) (*models.DirectoryCapabilities, error)
	InvalidateCapabilities(ctx context.Context) error
	ResolveAudience(ctx context.Context, audienceType models.AudienceType, filters models.AudienceFilters, departmentAliases map[string]string, limit int) ([]models.Recipient, error)
}
