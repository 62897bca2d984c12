package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignChannelRepositoryImpl implements the CampaignChannelRepository interface
type CampaignChannelRepositoryImpl struct {
	*BaseRepository[models.CampaignChannel, models.CampaignChannelFilter]
}

// NewCampaignChannelRepository creates a new campaign channel repository
func NewCampaignChannelRepository(db *gorm.DB) CampaignChannelRepository {
	return &CampaignChannelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignChannel, models.CampaignChannelFilter](db),
	}
}

// ByUUID retrieves a campaign channel by UUID
func (r *CampaignChannelRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.CampaignChannel, error) {
	db := r.getDB(ctx)

	var channel models.CampaignChannel
	err := db.Where("uuid = ?", id).Last(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign channel by UUID %s: %w", id, err)
	}

	return &channel, nil
}

// ListByCampaign retrieves all channels of one campaign, oldest first
func (r *CampaignChannelRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignChannel, error) {
	db := r.getDB(ctx)

	var channels []*models.CampaignChannel
	err := db.Where("campaign_id = ?", campaignID).
		Preload("SenderProfile").
		Order("id ASC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list channels for campaign %d: %w", campaignID, err)
	}

	return channels, nil
}

// LockByID retrieves a channel under a row lock. Must run inside
// WithTransaction so the lock survives until commit.
func (r *CampaignChannelRepositoryImpl) LockByID(ctx context.Context, id uint) (*models.CampaignChannel, error) {
	db := r.getDB(ctx)

	var channel models.CampaignChannel
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Last(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock campaign channel %d: %w", id, err)
	}

	return &channel, nil
}

// UpdateStatus sets the channel status and stamps the attempt time. A nil
// lastError clears the previous error.
func (r *CampaignChannelRepositoryImpl) UpdateStatus(ctx context.Context, channelID uint, status models.ChannelStatus, lastError *string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
		"updated_at": now,
	}
	if status.IsTerminal() || status == models.ChannelStatusProcessing {
		updates["last_attempt_at"] = now
	}

	// Compare-and-set: a channel that already reached sent or failed keeps
	// its status, so a concurrent manual delivery is never reverted.
	result := db.Model(&models.CampaignChannel{}).
		Where("id = ?", channelID).
		Where("status IN ?", []models.ChannelStatus{models.ChannelStatusPending, models.ChannelStatusProcessing}).
		Updates(updates)
	if result.Error != nil {
		err = fmt.Errorf("failed to update campaign channel status: %w", result.Error)
		return err
	}
	if result.RowsAffected == 0 {
		err = ErrStatusConflict
		return err
	}

	return nil
}

// BindProfile records which sender profile a delivery attempt used, without
// touching the channel status. Terminal channels are left alone.
func (r *CampaignChannelRepositoryImpl) BindProfile(ctx context.Context, channelID uint, profileID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.CampaignChannel{}).
		Where("id = ?", channelID).
		Where("status IN ?", []models.ChannelStatus{models.ChannelStatusPending, models.ChannelStatusProcessing}).
		Updates(map[string]interface{}{
			"sender_profile_id": profileID,
			"updated_at":        time.Now().UTC(),
		}).Error
	if err != nil {
		err = fmt.Errorf("failed to bind profile to campaign channel: %w", err)
		return err
	}

	return nil
}
