package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelProfileRepositoryImpl implements the ChannelProfileRepository interface
type ChannelProfileRepositoryImpl struct {
	*BaseRepository[models.ChannelProfile, models.ChannelProfileFilter]
}

// NewChannelProfileRepository creates a new channel profile repository
func NewChannelProfileRepository(db *gorm.DB) ChannelProfileRepository {
	return &ChannelProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChannelProfile, models.ChannelProfileFilter](db),
	}
}

// ByUUID retrieves a channel profile by UUID
func (r *ChannelProfileRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.ChannelProfile, error) {
	db := r.getDB(ctx)

	var profile models.ChannelProfile
	err := db.Where("uuid = ?", id).Last(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find channel profile by UUID %s: %w", id, err)
	}

	return &profile, nil
}

// ListActive retrieves all active sender profiles, most recently updated
// first. When two active profiles share a channel type the newer one wins at
// selection time, so the ordering here is part of the contract.
func (r *ChannelProfileRepositoryImpl) ListActive(ctx context.Context) ([]*models.ChannelProfile, error) {
	db := r.getDB(ctx)

	var profiles []*models.ChannelProfile
	err := db.Where("is_active = ?", true).
		Order("updated_at DESC NULLS LAST, created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active channel profiles: %w", err)
	}

	return profiles, nil
}

// ByTypeAndIdentity retrieves the profile for one (channel type, sender identity) pair
func (r *ChannelProfileRepositoryImpl) ByTypeAndIdentity(ctx context.Context, channelType models.ChannelType, senderIdentity string) (*models.ChannelProfile, error) {
	db := r.getDB(ctx)

	var profile models.ChannelProfile
	err := db.Where("channel_type = ? AND sender_identity = ?", channelType, senderIdentity).
		Last(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find channel profile by type and identity: %w", err)
	}

	return &profile, nil
}
