// Package businessflow contains the core business logic and use cases for campaign delivery workflows
package businessflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alialmasood/examination-committee-sub003/app/dto"
	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/repository"
	"github.com/alialmasood/examination-committee-sub003/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign lifecycle business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error)
	SendCampaign(ctx context.Context, req *dto.SendCampaignRequest, metadata *ClientMetadata) (*dto.SendCampaignResponse, error)
	ListChannelProfiles(ctx context.Context, metadata *ClientMetadata) (*dto.ListChannelProfilesResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	channelRepo   repository.CampaignChannelRepository
	profileRepo   repository.ChannelProfileRepository
	recipientFlow RecipientFlow
	db            *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	channelRepo repository.CampaignChannelRepository,
	profileRepo repository.ChannelProfileRepository,
	recipientFlow RecipientFlow,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:  campaignRepo,
		channelRepo:   channelRepo,
		profileRepo:   profileRepo,
		recipientFlow: recipientFlow,
		db:            db,
	}
}

// CreateCampaign creates a campaign draft with its channels
func (f *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	if err := f.validateCreateCampaignRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	priority := models.CampaignPriorityMedium
	if req.Priority != nil {
		priority = models.CampaignPriority(*req.Priority)
	}

	campaign := &models.Campaign{
		UUID:         uuid.New(),
		Title:        strings.TrimSpace(req.Title),
		Message:      req.Message,
		Priority:     priority,
		AudienceType: models.AudienceType(req.AudienceType),
		AudienceFilters: models.AudienceFilters{
			Departments: req.AudienceFilters.Departments,
			Stage:       req.AudienceFilters.Stage,
			Semester:    req.AudienceFilters.Semester,
		},
		CustomRecipients: pq.StringArray(trimmedRecipients(req.CustomRecipients)),
		Status:           models.CampaignStatusDraft,
		CreatedBy:        req.CreatedBy,
	}
	if err := campaign.BeforeCreate(); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}

		for _, channelType := range req.Channels {
			channel := &models.CampaignChannel{
				UUID:        uuid.New(),
				CampaignID:  campaign.ID,
				ChannelType: models.ChannelType(channelType),
				Status:      models.ChannelStatusPending,
			}
			if err := channel.BeforeCreate(); err != nil {
				return err
			}
			if err := f.channelRepo.Save(txCtx, channel); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	return &dto.CreateCampaignResponse{
		UUID:      campaign.UUID.String(),
		Status:    campaign.Status.String(),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ListCampaigns lists campaigns, newest first, with paging
func (f *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	filter := models.CampaignFilter{}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		filter.Title = req.Title
	}

	total, err := f.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	campaigns, err := f.campaignRepo.ByFilter(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	out := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignDTO(c))
	}

	return &dto.ListCampaignsResponse{
		Campaigns: out,
		Pagination: dto.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// SendCampaign queues a draft for delivery: the audience is resolved as a
// sanity check, then the campaign transitions to processing where the delivery
// worker picks it up.
func (f *CampaignFlowImpl) SendCampaign(ctx context.Context, req *dto.SendCampaignRequest, metadata *ClientMetadata) (*dto.SendCampaignResponse, error) {
	campaignUUID, err := uuid.Parse(req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UUID_REQUIRED", "Campaign UUID is invalid", ErrCampaignUUIDRequired)
	}

	campaign, err := f.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	if !campaign.CanTransitionTo(models.CampaignStatusProcessing) {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDABLE", "Campaign cannot be sent in its current status", ErrCampaignNotSendable)
	}

	recipients, err := f.recipientFlow.ResolveForCampaign(ctx, campaign)
	if err != nil {
		return nil, NewBusinessError("AUDIENCE_RESOLUTION_FAILED", "Failed to resolve campaign audience", err)
	}
	if len(recipients) == 0 {
		return nil, NewBusinessError("NO_CONTACTABLE_RECIPIENT", "No contactable recipients matched the audience", ErrNoContactableRecipient)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		return f.campaignRepo.UpdateStatus(txCtx, campaign.ID, models.CampaignStatusDraft, models.CampaignStatusProcessing)
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, NewBusinessError("CAMPAIGN_NOT_SENDABLE", "Campaign was sent concurrently", ErrCampaignNotSendable)
		}
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to queue campaign for delivery", err)
	}

	return &dto.SendCampaignResponse{
		UUID:            campaign.UUID.String(),
		Status:          models.CampaignStatusProcessing.String(),
		TotalRecipients: len(recipients),
	}, nil
}

// ListChannelProfiles lists the active sender profiles, newest first
func (f *CampaignFlowImpl) ListChannelProfiles(ctx context.Context, metadata *ClientMetadata) (*dto.ListChannelProfilesResponse, error) {
	profiles, err := f.profileRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LIST_FAILED", "Failed to list channel profiles", err)
	}

	out := make([]dto.ChannelProfileDTO, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, dto.ChannelProfileDTO{
			UUID:           p.UUID.String(),
			ChannelType:    p.ChannelType.String(),
			SenderIdentity: p.SenderIdentity,
			DisplayName:    p.Config.DisplayName,
			IsActive:       p.IsActive,
		})
	}

	return &dto.ListChannelProfilesResponse{Profiles: out}, nil
}

func (f *CampaignFlowImpl) validateCreateCampaignRequest(req *dto.CreateCampaignRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrCampaignTitleRequired
	}
	if strings.TrimSpace(req.Message) == "" {
		return ErrCampaignMessageRequired
	}

	audienceType := models.AudienceType(req.AudienceType)
	if !audienceType.Valid() {
		return ErrAudienceTypeInvalid
	}
	if audienceType == models.AudienceTypeCustom && len(trimmedRecipients(req.CustomRecipients)) == 0 {
		return ErrRecipientsRequired
	}
	if audienceType == models.AudienceTypeDepartment && len(req.AudienceFilters.Departments) == 0 {
		return ErrDepartmentsRequired
	}

	if len(req.Channels) == 0 {
		return ErrCampaignChannelsRequired
	}
	seen := make(map[string]struct{}, len(req.Channels))
	for _, channelType := range req.Channels {
		if !models.ChannelType(channelType).Valid() {
			return ErrChannelTypeInvalid
		}
		if _, dup := seen[channelType]; dup {
			return ErrDuplicateChannelType
		}
		seen[channelType] = struct{}{}
	}

	return nil
}

func trimmedRecipients(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toCampaignDTO(c *models.Campaign) dto.CampaignDTO {
	channels := make([]dto.CampaignChannelDTO, 0, len(c.Channels))
	for i := range c.Channels {
		ch := &c.Channels[i]
		channelDTO := dto.CampaignChannelDTO{
			UUID:          ch.UUID.String(),
			ChannelType:   ch.ChannelType.String(),
			Status:        ch.Status.String(),
			LastError:     ch.LastError,
			LastAttemptAt: ch.LastAttemptAt,
		}
		if ch.SenderProfile != nil {
			channelDTO.SenderIdentity = utils.ToPtr(ch.SenderProfile.SenderIdentity)
		}
		channels = append(channels, channelDTO)
	}

	return dto.CampaignDTO{
		UUID:         c.UUID.String(),
		Title:        c.Title,
		Message:      c.Message,
		Priority:     c.Priority.String(),
		AudienceType: c.AudienceType.String(),
		AudienceFilters: dto.AudienceFiltersDTO{
			Departments: c.AudienceFilters.Departments,
			Stage:       c.AudienceFilters.Stage,
			Semester:    c.AudienceFilters.Semester,
		},
		Status:          c.Status.String(),
		TotalRecipients: c.TotalRecipients,
		SentAt:          c.SentAt,
		CreatedAt:       c.CreatedAt,
		Channels:        channels,
	}
}
