// Package scheduler
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/alialmasood/examination-committee-sub003/app/middleware"
	"github.com/alialmasood/examination-committee-sub003/app/services"
	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/repository"
	"github.com/alialmasood/examination-committee-sub003/utils"
	"github.com/google/uuid"
)

// AudienceResolver resolves the recipient list of a stored campaign.
// This keeps the worker independent of the business flow layer and easy to test.
type AudienceResolver interface {
	ResolveForCampaign(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error)
}

// DeliveryWorker periodically claims campaigns stuck in processing and drives
// their channels to a terminal status, one delivery record per attempt.
type DeliveryWorker struct {
	campaignRepo repository.CampaignRepository
	channelRepo  repository.CampaignChannelRepository
	profileRepo  repository.ChannelProfileRepository
	deliveryRepo repository.ChannelDeliveryRepository
	resolver     AudienceResolver
	senders      *services.SenderRegistry
	logger       *log.Logger
	interval     time.Duration
	claimLimit   int

	db *gorm.DB

	logFile *lumberjack.Logger
}

func NewDeliveryWorker(
	campaignRepo repository.CampaignRepository,
	channelRepo repository.CampaignChannelRepository,
	profileRepo repository.ChannelProfileRepository,
	deliveryRepo repository.ChannelDeliveryRepository,
	resolver AudienceResolver,
	senders *services.SenderRegistry,
	db *gorm.DB,
	interval time.Duration,
	claimLimit int,
) *DeliveryWorker {
	if interval <= 0 {
		interval = utils.DefaultWorkerPollInterval
	}
	if claimLimit <= 0 {
		claimLimit = utils.DefaultClaimBatchLimit
	}

	w := &DeliveryWorker{
		campaignRepo: campaignRepo,
		channelRepo:  channelRepo,
		profileRepo:  profileRepo,
		deliveryRepo: deliveryRepo,
		resolver:     resolver,
		senders:      senders,
		db:           db,
		interval:     interval,
		claimLimit:   claimLimit,
	}

	// Initialize worker-specific logger (to stdout and persistent file)
	if err := w.initWorkerLogger(); err != nil {
		// Fallback to default stdout logger if file logger init fails
		w.logger = log.Default()
		w.logger.Printf("worker: failed to initialize file logger: %v", err)
	}

	return w
}

// initWorkerLogger configures a logger that writes to both stdout and a
// rotated file under data/ (or /data for containerized environments)
func (w *DeliveryWorker) initWorkerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		w.logFile = &lumberjack.Logger{
			Filename:   filepath.Join(dir, "delivery_worker.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, w.logFile)
		w.logger = log.New(mw, "worker ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create worker log directory in any candidate location")
}

// Start launches the worker loop in a background goroutine and returns a stop function
func (w *DeliveryWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				if w.logFile != nil {
					_ = w.logFile.Close()
				}
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (w *DeliveryWorker) runOnce(ctx context.Context) {
	// Claim a batch inside a short transaction so the claim stamp and the row
	// locks commit together.
	var claimed []*models.Campaign
	err := repository.WithTransaction(ctx, w.db, func(txCtx context.Context) error {
		var claimErr error
		claimed, claimErr = w.campaignRepo.ClaimProcessing(txCtx, w.claimLimit)
		return claimErr
	})
	if err != nil {
		w.logger.Printf("worker: claim failed: %v", err)
		return
	}
	if len(claimed) == 0 {
		return
	}
	w.logger.Printf("worker: claimed %d campaigns", len(claimed))

	// Campaigns are worked one at a time so a single cycle never competes with
	// itself for provider throughput.
	for _, camp := range claimed {
		if ctx.Err() != nil {
			return
		}
		if err := w.processCampaign(ctx, camp.ID); err != nil {
			w.logger.Printf("worker: process campaign id=%d failed: %v", camp.ID, err)
		}
	}
}

// processCampaign drives every non-terminal channel of a claimed campaign to
// sent or failed and finalizes the campaign. Returning an error leaves the
// claim stamp in place so a later cycle reclaims the campaign once stale.
func (w *DeliveryWorker) processCampaign(ctx context.Context, campaignID uint) error {
	campaign, err := w.campaignRepo.ByIDWithChannels(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil || campaign.Status != models.CampaignStatusProcessing {
		return nil
	}

	recipients, err := w.resolver.ResolveForCampaign(ctx, campaign)
	if err != nil {
		return fmt.Errorf("resolve audience for campaign id=%d: %w", campaignID, err)
	}
	w.logger.Printf("worker: campaign id=%d resolved %d recipients", campaignID, len(recipients))

	profiles, err := w.activeProfilesByType(ctx)
	if err != nil {
		return fmt.Errorf("load channel profiles: %w", err)
	}

	sentDelta := 0
	for _, ch := range campaign.Channels {
		channel := ch
		if channel.Status.IsTerminal() {
			continue
		}
		sent, err := w.deliverChannel(ctx, campaign, &channel, profiles[channel.ChannelType], recipients)
		if err != nil {
			return err
		}
		if sent {
			sentDelta++
		}
	}

	finalStatus, err := w.finalStatus(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("compute final status: %w", err)
	}

	if err := w.campaignRepo.Finalize(ctx, campaignID, finalStatus, sentDelta, uuid.New()); err != nil {
		return fmt.Errorf("finalize campaign id=%d: %w", campaignID, err)
	}
	middleware.RecordCampaignFinalized(finalStatus.String())
	w.logger.Printf("worker: campaign id=%d finalized as %s (%d channels newly sent)", campaignID, finalStatus, sentDelta)
	return nil
}

// deliverChannel attempts one channel and records exactly one delivery row.
// Provider failures become a failed delivery record; only infrastructure
// errors propagate.
func (w *DeliveryWorker) deliverChannel(
	ctx context.Context,
	campaign *models.Campaign,
	channel *models.CampaignChannel,
	profile *models.ChannelProfile,
	recipients []models.Recipient,
) (bool, error) {
	if err := w.channelRepo.UpdateStatus(ctx, channel.ID, models.ChannelStatusProcessing, nil); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// A manual delivery finished this channel after the snapshot was
			// read. Leave it alone; finalStatus re-reads the row.
			w.logger.Printf("worker: channel id=%d already terminal, skipping", channel.ID)
			return false, nil
		}
		return false, fmt.Errorf("mark channel id=%d processing: %w", channel.ID, err)
	}

	// Bind the resolved profile before attempting, so a later inspection of the
	// channel shows which identity the attempt used.
	if profile != nil && (channel.SenderProfileID == nil || *channel.SenderProfileID != profile.ID) {
		channel.SenderProfileID = &profile.ID
		if err := w.channelRepo.BindProfile(ctx, channel.ID, profile.ID); err != nil {
			return false, fmt.Errorf("bind profile to channel id=%d: %w", channel.ID, err)
		}
	}

	sender := w.senders.Lookup(channel.ChannelType)
	if sender == nil {
		msg := fmt.Sprintf("no sender registered for channel type %s", channel.ChannelType)
		return false, w.recordFailure(ctx, campaign, channel, profile, len(recipients), msg)
	}

	outcome, err := sender.AttemptSend(ctx, campaign, profile, recipients)
	if err != nil {
		var provErr *services.ProviderError
		if errors.As(err, &provErr) {
			return false, w.recordFailure(ctx, campaign, channel, profile, len(recipients), provErr.Error())
		}
		// Context cancellation and other infrastructure errors abort without a
		// terminal status; the stale claim window retries the campaign.
		return false, fmt.Errorf("attempt channel id=%d: %w", channel.ID, err)
	}

	delivery := w.newDelivery(campaign, channel, profile, outcome.DeliveredCount)
	delivery.Status = models.DeliveryStatusSuccess
	if outcome.ProviderResponse != "" {
		delivery.ProviderResponse = utils.ToPtr(outcome.ProviderResponse)
	}
	if err := w.deliveryRepo.Save(ctx, delivery); err != nil {
		return false, fmt.Errorf("save delivery for channel id=%d: %w", channel.ID, err)
	}
	if err := w.channelRepo.UpdateStatus(ctx, channel.ID, models.ChannelStatusSent, nil); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Already finished by a manual delivery; that path counted the
			// recipient, so this attempt does not add to the total.
			return false, nil
		}
		return false, fmt.Errorf("mark channel id=%d sent: %w", channel.ID, err)
	}
	middleware.RecordChannelDelivery(channel.ChannelType.String(), models.ChannelStatusSent.String())
	return true, nil
}

// recordFailure writes a failed delivery record and moves the channel to failed.
func (w *DeliveryWorker) recordFailure(
	ctx context.Context,
	campaign *models.Campaign,
	channel *models.CampaignChannel,
	profile *models.ChannelProfile,
	recipientCount int,
	message string,
) error {
	delivery := w.newDelivery(campaign, channel, profile, recipientCount)
	delivery.Status = models.DeliveryStatusFailed
	delivery.ErrorMessage = utils.ToPtr(message)
	if err := w.deliveryRepo.Save(ctx, delivery); err != nil {
		return fmt.Errorf("save failed delivery for channel id=%d: %w", channel.ID, err)
	}
	if err := w.channelRepo.UpdateStatus(ctx, channel.ID, models.ChannelStatusFailed, utils.ToPtr(message)); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// The channel went terminal concurrently; keep that status and the
			// failed delivery row as the audit of this attempt.
			return nil
		}
		return fmt.Errorf("mark channel id=%d failed: %w", channel.ID, err)
	}
	middleware.RecordChannelDelivery(channel.ChannelType.String(), models.ChannelStatusFailed.String())
	w.logger.Printf("worker: campaign id=%d channel id=%d (%s) failed: %s", campaign.ID, channel.ID, channel.ChannelType, message)
	return nil
}

func (w *DeliveryWorker) newDelivery(
	campaign *models.Campaign,
	channel *models.CampaignChannel,
	profile *models.ChannelProfile,
	recipientCount int,
) *models.ChannelDelivery {
	payload := models.DeliveryPayload{
		Subject:        utils.ToPtr(campaign.Title),
		Body:           utils.ToPtr(campaign.Message),
		RecipientCount: utils.ToPtr(recipientCount),
	}
	if profile != nil {
		payload.SenderIdentity = utils.ToPtr(profile.SenderIdentity)
	}
	return &models.ChannelDelivery{
		CampaignID: campaign.ID,
		ChannelID:  channel.ID,
		Payload:    payload,
	}
}

// activeProfilesByType maps each channel type to its most recently updated
// active profile. ListActive orders newest first, so the first hit wins.
func (w *DeliveryWorker) activeProfilesByType(ctx context.Context) (map[models.ChannelType]*models.ChannelProfile, error) {
	active, err := w.profileRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	byType := make(map[models.ChannelType]*models.ChannelProfile, len(active))
	for _, p := range active {
		if _, ok := byType[p.ChannelType]; !ok {
			byType[p.ChannelType] = p
		}
	}
	return byType, nil
}

// finalStatus re-reads the channel rows so manual deliveries that landed while
// the worker was running still count toward the terminal status. The campaign
// only counts as sent when every channel made it; one failed channel fails the
// whole campaign even though the other channels keep their sent status.
func (w *DeliveryWorker) finalStatus(ctx context.Context, campaignID uint) (models.CampaignStatus, error) {
	channels, err := w.channelRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return "", err
	}
	for _, ch := range channels {
		if ch.Status != models.ChannelStatusSent {
			return models.CampaignStatusFailed, nil
		}
	}
	return models.CampaignStatusSent, nil
}
