package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alialmasood/examination-committee-sub003/app/services"
	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/repository"
)

type fakeCampaignRepo struct {
	campaign *models.Campaign
	channels *fakeChannelRepo

	finalized      bool
	finalStatus    models.CampaignStatus
	deliveredDelta int
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	if r.campaign != nil && r.campaign.ID == id {
		return r.campaign, nil
	}
	return nil, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, c *models.Campaign) error { return nil }

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, c []*models.Campaign) error { return nil }

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, u uuid.UUID) (*models.Campaign, error) {
	return r.campaign, nil
}

func (r *fakeCampaignRepo) ByIDWithChannels(ctx context.Context, id uint) (*models.Campaign, error) {
	if r.campaign == nil || r.campaign.ID != id {
		return nil, nil
	}
	loaded := *r.campaign
	loaded.Channels = nil
	for _, ch := range r.channels.channels {
		loaded.Channels = append(loaded.Channels, *ch)
	}
	return &loaded, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, f models.CampaignFilter, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, f models.CampaignFilter) (int64, error) {
	return 0, nil
}

func (r *fakeCampaignRepo) ClaimProcessing(ctx context.Context, limit int) ([]*models.Campaign, error) {
	return nil, nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, from, to models.CampaignStatus) error {
	r.campaign.Status = to
	return nil
}

func (r *fakeCampaignRepo) Finalize(ctx context.Context, id uint, status models.CampaignStatus, deliveredDelta int, token uuid.UUID) error {
	r.finalized = true
	r.finalStatus = status
	r.deliveredDelta = deliveredDelta
	r.campaign.Status = status
	return nil
}

type fakeChannelRepo struct {
	channels []*models.CampaignChannel

	statusUpdates []models.ChannelStatus
}

func (r *fakeChannelRepo) byID(id uint) *models.CampaignChannel {
	for _, ch := range r.channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func (r *fakeChannelRepo) ByID(ctx context.Context, id uint) (*models.CampaignChannel, error) {
	return r.byID(id), nil
}

func (r *fakeChannelRepo) Save(ctx context.Context, ch *models.CampaignChannel) error {
	if existing := r.byID(ch.ID); existing != nil {
		*existing = *ch
	}
	return nil
}

func (r *fakeChannelRepo) SaveBatch(ctx context.Context, chs []*models.CampaignChannel) error {
	return nil
}

func (r *fakeChannelRepo) ByUUID(ctx context.Context, u uuid.UUID) (*models.CampaignChannel, error) {
	return nil, nil
}

func (r *fakeChannelRepo) ListByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignChannel, error) {
	return r.channels, nil
}

func (r *fakeChannelRepo) LockByID(ctx context.Context, id uint) (*models.CampaignChannel, error) {
	return r.byID(id), nil
}

func (r *fakeChannelRepo) UpdateStatus(ctx context.Context, id uint, status models.ChannelStatus, lastError *string) error {
	ch := r.byID(id)
	if ch.Status.IsTerminal() {
		return repository.ErrStatusConflict
	}
	ch.Status = status
	ch.LastError = lastError
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

func (r *fakeChannelRepo) BindProfile(ctx context.Context, id uint, profileID uint) error {
	ch := r.byID(id)
	if ch.Status.IsTerminal() {
		return nil
	}
	ch.SenderProfileID = &profileID
	return nil
}

type fakeProfileRepo struct {
	active []*models.ChannelProfile
}

func (r *fakeProfileRepo) ByID(ctx context.Context, id uint) (*models.ChannelProfile, error) {
	return nil, nil
}

func (r *fakeProfileRepo) Save(ctx context.Context, p *models.ChannelProfile) error { return nil }

func (r *fakeProfileRepo) SaveBatch(ctx context.Context, p []*models.ChannelProfile) error { return nil }

func (r *fakeProfileRepo) ByUUID(ctx context.Context, u uuid.UUID) (*models.ChannelProfile, error) {
	return nil, nil
}

func (r *fakeProfileRepo) ListActive(ctx context.Context) ([]*models.ChannelProfile, error) {
	return r.active, nil
}

func (r *fakeProfileRepo) ByTypeAndIdentity(ctx context.Context, t models.ChannelType, identity string) (*models.ChannelProfile, error) {
	return nil, nil
}

type fakeDeliveryRepo struct {
	saved []*models.ChannelDelivery
}

func (r *fakeDeliveryRepo) ByID(ctx context.Context, id uint) (*models.ChannelDelivery, error) {
	return nil, nil
}

func (r *fakeDeliveryRepo) Save(ctx context.Context, d *models.ChannelDelivery) error {
	r.saved = append(r.saved, d)
	return nil
}

func (r *fakeDeliveryRepo) SaveBatch(ctx context.Context, d []*models.ChannelDelivery) error {
	return nil
}

func (r *fakeDeliveryRepo) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.ChannelDelivery, error) {
	return r.saved, nil
}

func (r *fakeDeliveryRepo) CountByCampaignAndStatus(ctx context.Context, campaignID uint, status models.DeliveryStatus) (int64, error) {
	var n int64
	for _, d := range r.saved {
		if d.Status == status {
			n++
		}
	}
	return n, nil
}

type staticResolver struct {
	recipients []models.Recipient
	err        error

	// onResolve runs after the worker has read its channel snapshot, which
	// makes concurrent status changes easy to model.
	onResolve func()
}

func (r *staticResolver) ResolveForCampaign(ctx context.Context, c *models.Campaign) ([]models.Recipient, error) {
	if r.onResolve != nil {
		r.onResolve()
	}
	return r.recipients, r.err
}

type stubSender struct {
	channelType models.ChannelType
	outcome     *services.DeliveryOutcome
	err         error
}

func (s *stubSender) ChannelType() models.ChannelType { return s.channelType }
func (s *stubSender) RequiresProfile() bool           { return false }

func (s *stubSender) AttemptSend(ctx context.Context, c *models.Campaign, p *models.ChannelProfile, r []models.Recipient) (*services.DeliveryOutcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.outcome != nil {
		return s.outcome, nil
	}
	return &services.DeliveryOutcome{ProviderResponse: "ok", DeliveredCount: len(r)}, nil
}

type workerFixture struct {
	worker       *DeliveryWorker
	campaignRepo *fakeCampaignRepo
	channelRepo  *fakeChannelRepo
	deliveryRepo *fakeDeliveryRepo
}

func newWorkerFixture(campaign *models.Campaign, channels []*models.CampaignChannel, profiles []*models.ChannelProfile, registry *services.SenderRegistry, resolver AudienceResolver) *workerFixture {
	channelRepo := &fakeChannelRepo{channels: channels}
	campaignRepo := &fakeCampaignRepo{campaign: campaign, channels: channelRepo}
	deliveryRepo := &fakeDeliveryRepo{}

	worker := &DeliveryWorker{
		campaignRepo: campaignRepo,
		channelRepo:  channelRepo,
		profileRepo:  &fakeProfileRepo{active: profiles},
		deliveryRepo: deliveryRepo,
		resolver:     resolver,
		senders:      registry,
		logger:       log.New(io.Discard, "", 0),
	}
	return &workerFixture{
		worker:       worker,
		campaignRepo: campaignRepo,
		channelRepo:  channelRepo,
		deliveryRepo: deliveryRepo,
	}
}

func deliveryTestCampaign() *models.Campaign {
	return &models.Campaign{
		ID:      7,
		UUID:    uuid.New(),
		Title:   "Re-exam schedule",
		Message: "The second attempt runs next week.",
		Status:  models.CampaignStatusProcessing,
	}
}

func deliveryTestRecipients() []models.Recipient {
	return []models.Recipient{
		{ID: "1", Name: "Ali", Phone: "+9647701234567"},
		{ID: "2", Name: "Sara", Phone: "+9647709876543"},
	}
}

func TestProcessCampaignAllChannelsSent(t *testing.T) {
	channels := []*models.CampaignChannel{
		{ID: 1, CampaignID: 7, ChannelType: models.ChannelTypeEmail, Status: models.ChannelStatusPending},
		{ID: 2, CampaignID: 7, ChannelType: models.ChannelTypeWhatsApp, Status: models.ChannelStatusPending},
	}
	profiles := []*models.ChannelProfile{
		{ID: 11, ChannelType: models.ChannelTypeEmail, SenderIdentity: "registrar@college.edu.iq", IsActive: true},
		{ID: 12, ChannelType: models.ChannelTypeWhatsApp, SenderIdentity: "+9647801112233", IsActive: true},
	}
	registry := services.NewSenderRegistry(
		&stubSender{channelType: models.ChannelTypeEmail},
		&stubSender{channelType: models.ChannelTypeWhatsApp},
	)
	fx := newWorkerFixture(deliveryTestCampaign(), channels, profiles, registry, &staticResolver{recipients: deliveryTestRecipients()})

	err := fx.worker.processCampaign(context.Background(), 7)
	require.NoError(t, err)

	require.True(t, fx.campaignRepo.finalized)
	assert.Equal(t, models.CampaignStatusSent, fx.campaignRepo.finalStatus)
	assert.Equal(t, 2, fx.campaignRepo.deliveredDelta)

	require.Len(t, fx.deliveryRepo.saved, 2)
	for _, d := range fx.deliveryRepo.saved {
		assert.Equal(t, models.DeliveryStatusSuccess, d.Status)
		require.NotNil(t, d.Payload.RecipientCount)
		assert.Equal(t, 2, *d.Payload.RecipientCount)
	}
	for _, ch := range channels {
		assert.Equal(t, models.ChannelStatusSent, ch.Status)
		require.NotNil(t, ch.SenderProfileID)
	}
}

func TestProcessCampaignProviderFailureRecorded(t *testing.T) {
	channels := []*models.CampaignChannel{
		{ID: 1, CampaignID: 7, ChannelType: models.ChannelTypeEmail, Status: models.ChannelStatusPending},
	}
	// No active profile: the real email sender records a provider failure.
	registry := services.NewDefaultSenderRegistry()
	fx := newWorkerFixture(deliveryTestCampaign(), channels, nil, registry, &staticResolver{recipients: deliveryTestRecipients()})

	err := fx.worker.processCampaign(context.Background(), 7)
	require.NoError(t, err)

	require.True(t, fx.campaignRepo.finalized)
	assert.Equal(t, models.CampaignStatusFailed, fx.campaignRepo.finalStatus)
	assert.Equal(t, 0, fx.campaignRepo.deliveredDelta)

	require.Len(t, fx.deliveryRepo.saved, 1)
	assert.Equal(t, models.DeliveryStatusFailed, fx.deliveryRepo.saved[0].Status)
	require.NotNil(t, fx.deliveryRepo.saved[0].ErrorMessage)
	assert.Contains(t, *fx.deliveryRepo.saved[0].ErrorMessage, "PROFILE_MISSING")

	assert.Equal(t, models.ChannelStatusFailed, channels[0].Status)
	require.NotNil(t, channels[0].LastError)
}

func TestProcessCampaignMixedOutcome(t *testing.T) {
	channels := []*models.CampaignChannel{
		{ID: 1, CampaignID: 7, ChannelType: models.ChannelTypeSystemNotification, Status: models.ChannelStatusPending},
		{ID: 2, CampaignID: 7, ChannelType: models.ChannelTypeSMS, Status: models.ChannelStatusPending},
	}
	registry := services.NewSenderRegistry(
		&stubSender{channelType: models.ChannelTypeSystemNotification},
		&stubSender{channelType: models.ChannelTypeSMS, err: services.NewProviderError("GATEWAY_DOWN", "provider rejected the batch")},
	)
	fx := newWorkerFixture(deliveryTestCampaign(), channels, nil, registry, &staticResolver{recipients: deliveryTestRecipients()})

	err := fx.worker.processCampaign(context.Background(), 7)
	require.NoError(t, err)

	// One failed channel fails the whole campaign; the sent channel keeps its
	// status and still counts toward the delivered total.
	assert.Equal(t, models.CampaignStatusFailed, fx.campaignRepo.finalStatus)
	assert.Equal(t, 1, fx.campaignRepo.deliveredDelta)
	assert.Equal(t, models.ChannelStatusSent, channels[0].Status)
	assert.Equal(t, models.ChannelStatusFailed, channels[1].Status)
	require.Len(t, fx.deliveryRepo.saved, 2)
}

func TestProcessCampaignSkipsTerminalChannels(t *testing.T) {
	channels := []*models.CampaignChannel{
		{ID: 1, CampaignID: 7, ChannelType: models.ChannelTypeEmail, Status: models.ChannelStatusSent},
		{ID: 2, CampaignID: 7, ChannelType: models.ChannelTypeSMS, Status: models.ChannelStatusFailed},
	}
	registry := services.NewDefaultSenderRegistry()
	fx := newWorkerFixture(deliveryTestCampaign(), channels, nil, registry, &staticResolver{recipients: deliveryTestRecipients()})

	err := fx.worker.processCampaign(context.Background(), 7)
	require.NoError(t, err)

	// No new attempts, and the earlier failed channel keeps the campaign failed.
	assert.Empty(t, fx.deliveryRepo.saved)
	assert.Equal(t, models.CampaignStatusFailed, fx.campaignRepo.finalStatus)
	assert.Equal(t, 0, fx.campaignRepo.deliveredDelta)
}

func TestProcessCampaignKeepsConcurrentlySentChannel(t *testing.T) {
	channels := []*models.CampaignChannel{
		{ID: 1, CampaignID: 7, ChannelType: models.ChannelTypeWhatsApp, Status: models.ChannelStatusPending},
	}
	registry := services.NewSenderRegistry(&stubSender{channelType: models.ChannelTypeWhatsApp})

	resolver := &staticResolver{recipients: deliveryTestRecipients()}
	fx := newWorkerFixture(deliveryTestCampaign(), channels, nil, registry, resolver)

	// A manual delivery commits "sent" after the worker read its snapshot but
	// before it touches the channel.
	resolver.onResolve = func() {
		channels[0].Status = models.ChannelStatusSent
	}

	err := fx.worker.processCampaign(context.Background(), 7)
	require.NoError(t, err)

	// The terminal status stands, no delivery row is written for the skipped
	// attempt, and the manual path's recipient is not double counted.
	assert.Equal(t, models.ChannelStatusSent, channels[0].Status)
	assert.Empty(t, fx.deliveryRepo.saved)
	assert.Equal(t, models.CampaignStatusSent, fx.campaignRepo.finalStatus)
	assert.Equal(t, 0, fx.campaignRepo.deliveredDelta)
}

func TestProcessCampaignInfrastructureErrorAborts(t *testing.T) {
	channels := []*models.CampaignChannel{
		{ID: 1, CampaignID: 7, ChannelType: models.ChannelTypeEmail, Status: models.ChannelStatusPending},
	}
	registry := services.NewSenderRegistry(
		&stubSender{channelType: models.ChannelTypeEmail, err: errors.New("connection reset")},
	)
	fx := newWorkerFixture(deliveryTestCampaign(), channels, nil, registry, &staticResolver{recipients: deliveryTestRecipients()})

	err := fx.worker.processCampaign(context.Background(), 7)
	require.Error(t, err)

	// The campaign stays claimed and non-terminal so a later cycle retries it.
	assert.False(t, fx.campaignRepo.finalized)
	assert.Empty(t, fx.deliveryRepo.saved)
}

func TestProcessCampaignIgnoresNonProcessingCampaign(t *testing.T) {
	campaign := deliveryTestCampaign()
	campaign.Status = models.CampaignStatusDraft

	registry := services.NewDefaultSenderRegistry()
	fx := newWorkerFixture(campaign, nil, nil, registry, &staticResolver{recipients: deliveryTestRecipients()})

	err := fx.worker.processCampaign(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, fx.campaignRepo.finalized)
}
