// Package businessflow contains the core business logic and use cases for campaign delivery workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alialmasood/examination-committee-sub003/app/dto"
	"github.com/alialmasood/examination-committee-sub003/models"
	"github.com/alialmasood/examination-committee-sub003/repository"
	"github.com/alialmasood/examination-committee-sub003/utils"
)

// RecipientFlow resolves campaign audiences into concrete recipient lists
type RecipientFlow interface {
	PreviewRecipients(ctx context.Context, req *dto.PreviewRecipientsRequest, metadata *ClientMetadata) (*dto.PreviewRecipientsResponse, error)
	ResolveForCampaign(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error)
}

// RecipientFlowImpl implements the recipient resolution business flow
type RecipientFlowImpl struct {
	directoryRepo     repository.StudentDirectoryRepository
	departmentAliases map[string]string
	maxRecipients     int
}

// NewRecipientFlow creates a new recipient flow instance. departmentAliases
// maps sanitized legacy department labels to their canonical names.
func NewRecipientFlow(
	directoryRepo repository.StudentDirectoryRepository,
	departmentAliases map[string]string,
	maxRecipients int,
) RecipientFlow {
	if maxRecipients <= 0 {
		maxRecipients = utils.MaxPreviewRecipients
	}
	return &RecipientFlowImpl{
		directoryRepo:     directoryRepo,
		departmentAliases: departmentAliases,
		maxRecipients:     maxRecipients,
	}
}

// PreviewRecipients resolves an audience definition without touching any
// campaign. Custom recipients pass through verbatim under synthetic ids.
func (f *RecipientFlowImpl) PreviewRecipients(ctx context.Context, req *dto.PreviewRecipientsRequest, metadata *ClientMetadata) (*dto.PreviewRecipientsResponse, error) {
	audienceType := models.AudienceType(req.AudienceType)
	if !audienceType.Valid() {
		return nil, NewBusinessError("AUDIENCE_TYPE_INVALID", "Audience type is invalid", ErrAudienceTypeInvalid)
	}

	limit := req.Limit
	if limit <= 0 || limit > f.maxRecipients {
		limit = f.maxRecipients
	}

	if audienceType == models.AudienceTypeCustom {
		recipients := customRecipients("preview", req.CustomRecipients)
		if len(recipients) == 0 {
			return nil, NewBusinessError("RECIPIENTS_REQUIRED", "Custom audiences require at least one recipient", ErrRecipientsRequired)
		}
		truncated := len(recipients) > limit
		if truncated {
			recipients = recipients[:limit]
		}
		return &dto.PreviewRecipientsResponse{
			Recipients: toRecipientDTOs(recipients),
			Total:      len(recipients),
			Truncated:  truncated,
		}, nil
	}

	filters := models.AudienceFilters{
		Departments: req.AudienceFilters.Departments,
		Stage:       req.AudienceFilters.Stage,
		Semester:    req.AudienceFilters.Semester,
	}
	if audienceType == models.AudienceTypeDepartment && len(filters.Departments) == 0 {
		return nil, NewBusinessError("DEPARTMENTS_REQUIRED", "Department audiences require at least one department", ErrDepartmentsRequired)
	}

	// Ask for one extra row to detect truncation.
	recipients, err := f.directoryRepo.ResolveAudience(ctx, audienceType, filters, f.departmentAliases, limit+1)
	if err != nil {
		if errors.Is(err, repository.ErrAudienceNotResolvable) {
			return nil, NewBusinessError("AUDIENCE_NOT_RESOLVABLE", "Audience cannot be resolved for this deployment", ErrAudienceNotResolvable)
		}
		return nil, NewBusinessError("AUDIENCE_RESOLUTION_FAILED", "Failed to resolve audience", err)
	}

	truncated := len(recipients) > limit
	if truncated {
		recipients = recipients[:limit]
	}

	return &dto.PreviewRecipientsResponse{
		Recipients: toRecipientDTOs(recipients),
		Total:      len(recipients),
		Truncated:  truncated,
	}, nil
}

// ResolveForCampaign resolves the audience of a stored campaign. Synthetic
// ids of custom recipients embed the campaign id so delivery records stay
// traceable.
func (f *RecipientFlowImpl) ResolveForCampaign(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error) {
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	if campaign.AudienceType == models.AudienceTypeCustom {
		recipients := customRecipients(fmt.Sprintf("%d", campaign.ID), campaign.CustomRecipients)
		if len(recipients) > f.maxRecipients {
			recipients = recipients[:f.maxRecipients]
		}
		return recipients, nil
	}

	recipients, err := f.directoryRepo.ResolveAudience(ctx, campaign.AudienceType, campaign.AudienceFilters, f.departmentAliases, f.maxRecipients)
	if err != nil {
		if errors.Is(err, repository.ErrAudienceNotResolvable) {
			return nil, ErrAudienceNotResolvable
		}
		return nil, err
	}

	return recipients, nil
}

// customRecipients turns raw recipient values into Recipient entries,
// trimming whitespace and dropping empties. Values are kept verbatim
// otherwise; ids follow the {prefix}-custom-{index} convention.
func customRecipients(prefix string, values []string) []models.Recipient {
	recipients := make([]models.Recipient, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		// Index over the surviving recipients, so ids stay contiguous when
		// blank entries are dropped.
		recipients = append(recipients, models.Recipient{
			ID:    fmt.Sprintf("%s-custom-%d", prefix, len(recipients)),
			Name:  utils.UnnamedRecipientPlaceholder,
			Phone: v,
		})
	}
	return recipients
}

func toRecipientDTOs(recipients []models.Recipient) []dto.RecipientDTO {
	out := make([]dto.RecipientDTO, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, dto.RecipientDTO{
			ID:         r.ID,
			Name:       r.Name,
			Phone:      r.Phone,
			Department: r.Department,
		})
	}
	return out
}
