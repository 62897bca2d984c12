package repository

import (
	"context"
	"fmt"

	"github.com/alialmasood/examination-committee-sub003/models"
	"gorm.io/gorm"
)

// ChannelDeliveryRepositoryImpl implements the ChannelDeliveryRepository
// interface. Delivery records are append-only; there are no update methods.
type ChannelDeliveryRepositoryImpl struct {
	*BaseRepository[models.ChannelDelivery, models.ChannelDeliveryFilter]
}

// NewChannelDeliveryRepository creates a new channel delivery repository
func NewChannelDeliveryRepository(db *gorm.DB) ChannelDeliveryRepository {
	return &ChannelDeliveryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChannelDelivery, models.ChannelDeliveryFilter](db),
	}
}

// ListByCampaign retrieves delivery records for a campaign, newest first
func (r *ChannelDeliveryRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.ChannelDelivery, error) {
	db := r.getDB(ctx)

	var deliveries []*models.ChannelDelivery
	query := db.Where("campaign_id = ?", campaignID).Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&deliveries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries for campaign %d: %w", campaignID, err)
	}

	return deliveries, nil
}

// CountByCampaignAndStatus counts delivery records of a campaign in one status
func (r *ChannelDeliveryRepositoryImpl) CountByCampaignAndStatus(ctx context.Context, campaignID uint, status models.DeliveryStatus) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.ChannelDelivery{}).
		Where("campaign_id = ? AND status = ?", campaignID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries for campaign %d: %w", campaignID, err)
	}

	return count, nil
}
