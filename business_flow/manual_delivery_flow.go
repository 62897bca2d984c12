// Package businessflow contains the core business logic and use cases for campaign delivery workflows
package businessflow

import (
	"context"
	"strings"

	"github.com/alialmasood/examination-committee-sub003/app/dto"
	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ManualDeliveryFlow records out-of-band delivery outcomes on campaign channels
type ManualDeliveryFlow interface {
	RecordManualDelivery(ctx context.Context, req *dto.ManualDeliveryRequest, metadata *ClientMetadata) (*dto.ManualDeliveryResponse, error)
}

// ManualDeliveryFlowImpl implements the manual delivery business flow
type ManualDeliveryFlowImpl struct {
	campaignRepo repository.CampaignRepository
	channelRepo  repository.CampaignChannelRepository
	deliveryRepo repository.ChannelDeliveryRepository
	db           *gorm.DB
}

// NewManualDeliveryFlow creates a new manual delivery flow instance
func NewManualDeliveryFlow(
	campaignRepo repository.CampaignRepository,
	channelRepo repository.CampaignChannelRepository,
	deliveryRepo repository.ChannelDeliveryRepository,
	db *gorm.DB,
) ManualDeliveryFlow {
	return &ManualDeliveryFlowImpl{
		campaignRepo: campaignRepo,
		channelRepo:  channelRepo,
		deliveryRepo: deliveryRepo,
		db:           db,
	}
}

// RecordManualDelivery is the side door for a human-confirmed out-of-band
// send: one transaction writes a success delivery record, marks the channel
// sent, marks the campaign sent and counts one recipient. The channel row is
// locked so the delivery worker cannot race the update, and a mismatched
// campaign/channel pair writes nothing.
func (f *ManualDeliveryFlowImpl) RecordManualDelivery(ctx context.Context, req *dto.ManualDeliveryRequest, metadata *ClientMetadata) (*dto.ManualDeliveryResponse, error) {
	campaignUUID, err := uuid.Parse(req.CampaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UUID_REQUIRED", "Campaign UUID is invalid", ErrCampaignUUIDRequired)
	}
	channelUUID, err := uuid.Parse(req.ChannelUUID)
	if err != nil {
		return nil, NewBusinessError("CHANNEL_NOT_FOUND", "Channel UUID is invalid", ErrChannelNotFound)
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return nil, NewBusinessError("RECIPIENT_REQUIRED", "Recipient is required", ErrRecipientsRequired)
	}

	var delivery *models.ChannelDelivery

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		campaign, err := f.campaignRepo.ByUUID(txCtx, campaignUUID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}

		channel, err := f.channelRepo.ByUUID(txCtx, channelUUID)
		if err != nil {
			return err
		}
		if channel == nil || channel.CampaignID != campaign.ID {
			return ErrChannelCampaignMismatch
		}

		locked, err := f.channelRepo.LockByID(txCtx, channel.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrChannelNotFound
		}
		if locked.Status.IsTerminal() {
			return ErrChannelAlreadyTerminal
		}

		recipient := strings.TrimSpace(req.Recipient)
		delivery = &models.ChannelDelivery{
			UUID:       uuid.New(),
			CampaignID: campaign.ID,
			ChannelID:  locked.ID,
			Recipient:  &recipient,
			Status:     models.DeliveryStatusSuccess,
			Payload: models.DeliveryPayload{
				Subject:        req.Note,
				SenderIdentity: manualSenderIdentity(metadata),
			},
		}
		if err := delivery.BeforeCreate(); err != nil {
			return err
		}
		if err := f.deliveryRepo.Save(txCtx, delivery); err != nil {
			return err
		}

		if err := f.channelRepo.UpdateStatus(txCtx, locked.ID, models.ChannelStatusSent, nil); err != nil {
			return err
		}

		// The out-of-band send flips the campaign to sent directly, one
		// recipient at a time, without going through the worker.
		return f.campaignRepo.Finalize(txCtx, campaign.ID, models.CampaignStatusSent, 1, uuid.New())
	})
	if err != nil {
		switch {
		case IsCampaignNotFound(err):
			return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", err)
		case IsChannelCampaignMismatch(err), IsChannelNotFound(err):
			return nil, NewBusinessError("CHANNEL_NOT_FOUND", "Channel not found for this campaign", err)
		case IsChannelAlreadyTerminal(err):
			return nil, NewBusinessError("CHANNEL_ALREADY_TERMINAL", "Channel already reached a final status", err)
		default:
			return nil, NewBusinessError("MANUAL_DELIVERY_FAILED", "Failed to record manual delivery", err)
		}
	}

	return &dto.ManualDeliveryResponse{
		DeliveryUUID:  delivery.UUID.String(),
		ChannelUUID:   channelUUID.String(),
		ChannelStatus: models.ChannelStatusSent.String(),
	}, nil
}

// manualSenderIdentity records who confirmed the out-of-band send
func manualSenderIdentity(metadata *ClientMetadata) *string {
	if metadata == nil {
		return nil
	}
	if operator, ok := metadata.Additional["operator"]; ok && operator != "" {
		return &operator
	}
	return nil
}
