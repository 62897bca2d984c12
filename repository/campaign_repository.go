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

// ErrStatusConflict is returned when a guarded status transition matched no row
var ErrStatusConflict = errors.New("campaign status changed concurrently")

// claimStaleAfter is how long a claim holds before another worker may retake
// the campaign. Protects against a worker dying mid-delivery.
const claimStaleAfter = 10 * time.Minute

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Where("uuid = ?", id).Last(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign by UUID %s: %w", id, err)
	}

	return &campaign, nil
}

// ByIDWithChannels retrieves a campaign with its channels and their sender profiles
func (r *CampaignRepositoryImpl) ByIDWithChannels(ctx context.Context, id uint) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Preload("Channels").
		Preload("Channels.SenderProfile").
		Last(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign with channels by ID %d: %w", id, err)
	}

	return &campaign, nil
}

// ByFilter retrieves campaigns based on filter criteria, newest first
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := r.applyFilter(db, filter).Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Channels")

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find campaigns by filter: %w", err)
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Campaign{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	return count, nil
}

// ClaimProcessing picks up to limit processing campaigns, oldest first, and
// stamps claimed_at so concurrent workers skip them. Rows locked by another
// transaction are skipped rather than waited on. Must run inside
// WithTransaction; the claim marker becomes visible to other workers when the
// caller commits.
func (r *CampaignRepositoryImpl) ClaimProcessing(ctx context.Context, limit int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	if limit <= 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	staleBefore := now.Add(-claimStaleAfter)

	var campaigns []*models.Campaign
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.CampaignStatusProcessing).
		Where("claimed_at IS NULL OR claimed_at < ?", staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to claim processing campaigns: %w", err)
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
		c.ClaimedAt = &now
	}

	err = db.Model(&models.Campaign{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"claimed_at": now,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to stamp claimed campaigns: %w", err)
	}

	return campaigns, nil
}

// UpdateStatus transitions a campaign between statuses. The from status guards
// against concurrent transitions; a non-matching row returns ErrStatusConflict.
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, campaignID uint, from, to models.CampaignStatus) error {
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
	result := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaignID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		err = fmt.Errorf("failed to update campaign status: %w", result.Error)
		return err
	}
	if result.RowsAffected == 0 {
		err = ErrStatusConflict
		return err
	}

	return nil
}

// Finalize moves a campaign to its terminal status and accumulates the
// delivered units into total_recipients. The finalize token makes retries
// idempotent: a second call carrying the same token leaves the row untouched.
// sent_at keeps the first finalization time.
func (r *CampaignRepositoryImpl) Finalize(ctx context.Context, campaignID uint, status models.CampaignStatus, deliveredDelta int, finalizeToken uuid.UUID) error {
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

	if status != models.CampaignStatusSent && status != models.CampaignStatusFailed {
		err = fmt.Errorf("cannot finalize campaign to non-terminal status %s", status)
		return err
	}

	now := time.Now().UTC()
	err = db.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Where("finalize_token IS DISTINCT FROM ?", finalizeToken).
		Updates(map[string]interface{}{
			"status":           status,
			"total_recipients": gorm.Expr("total_recipients + ?", deliveredDelta),
			"sent_at":          gorm.Expr("COALESCE(sent_at, ?)", now),
			"finalize_token":   finalizeToken,
			"claimed_at":       nil,
			"updated_at":       now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize campaign %d: %w", campaignID, err)
	}

	return nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		db = db.Where("priority = ?", *filter.Priority)
	}
	if filter.AudienceType != nil {
		db = db.Where("audience_type = ?", *filter.AudienceType)
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Title != nil {
		db = db.Where("title ILIKE ?", "%"+*filter.Title+"%")
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.SentAfter != nil {
		db = db.Where("sent_at >= ?", *filter.SentAfter)
	}
	if filter.SentBefore != nil {
		db = db.Where("sent_at <= ?", *filter.SentBefore)
	}

	return db
}
