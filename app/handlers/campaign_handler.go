// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/alialmasood/examination-committee-sub003/app/dto"
	"github.com/alialmasood/examination-committee-sub003/app/services"
	businessflow "github.com/alialmasood/examination-committee-sub003/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	SendCampaign(c fiber.Ctx) error
	RecordManualDelivery(c fiber.Ctx) error
	PreviewRecipients(c fiber.Ctx) error
	ListChannelProfiles(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	deliveryFlow businessflow.ManualDeliveryFlow
	recipients   businessflow.RecipientFlow
	validator    *validator.Validate
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(
	campaignFlow businessflow.CampaignFlow,
	deliveryFlow businessflow.ManualDeliveryFlow,
	recipients businessflow.RecipientFlow,
) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		deliveryFlow: deliveryFlow,
		recipients:   recipients,
		validator:    validator.New(),
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new draft campaign with its audience definition and delivery channels
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	// Get authenticated user ID from context
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	req.CreatedBy = userID

	// Call business logic with proper context
	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignTitleRequired(err) || businessflow.IsCampaignMessageRequired(err) ||
			businessflow.IsCampaignChannelsRequired(err) || businessflow.IsDuplicateChannelType(err) ||
			businessflow.IsChannelTypeInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign definition", "INVALID_CAMPAIGN", err.Error())
		}
		if businessflow.IsAudienceTypeRequired(err) || businessflow.IsAudienceTypeInvalid(err) ||
			businessflow.IsRecipientsRequired(err) || businessflow.IsDepartmentsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid audience definition", "INVALID_AUDIENCE", err.Error())
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	// Successful campaign creation
	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", fiber.Map{
		"uuid":       result.UUID,
		"status":     result.Status,
		"created_at": result.CreatedAt,
	})
}

// ListCampaigns returns campaigns with filters and pagination
// @Summary List Campaigns
// @Description Retrieve campaigns with pagination and optional status/title filters
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(20)
// @Param status query string false "Filter by status (draft|processing|sent|failed)"
// @Param title query string false "Filter by title (contains)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	// Parse query params
	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := 20
	if v, err := strconv.Atoi(c.Query("page_size", "20")); err == nil && v > 0 {
		pageSize = v
	}

	req := &dto.ListCampaignsRequest{
		Page:     page,
		PageSize: pageSize,
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if title := c.Query("title"); title != "" {
		req.Title = &title
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Client metadata
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Call business logic
	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), req, metadata)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", err.Error())
		}
		log.Println("List campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", fiber.Map{
		"campaigns":  result.Campaigns,
		"pagination": result.Pagination,
	})
}

// SendCampaign queues a draft campaign for delivery
// @Summary Send Campaign
// @Description Resolve the campaign audience and queue the campaign for channel delivery
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.SendCampaignResponse} "Campaign queued for delivery"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not sendable in its current status"
// @Failure 422 {object} dto.APIResponse "Audience resolves to no contactable recipient"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/send [post]
func (h *CampaignHandler) SendCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	// Get authenticated user ID from context
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	req := &dto.SendCampaignRequest{
		UUID:      campaignUUID,
		CreatedBy: userID,
	}

	// Get client information
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Call business logic with proper context
	result, err := h.campaignFlow.SendCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/send"), req, metadata)
	if err != nil {
		if businessflow.IsCampaignUUIDRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign UUID", "INVALID_CAMPAIGN_UUID", nil)
		}
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignNotSendable(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign cannot be sent in its current status", "CAMPAIGN_NOT_SENDABLE", nil)
		}
		if businessflow.IsNoContactableRecipient(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Audience resolves to no contactable recipient", "NO_CONTACTABLE_RECIPIENT", nil)
		}
		if businessflow.IsAudienceNotResolvable(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Audience cannot be resolved with the current student directory", "AUDIENCE_NOT_RESOLVABLE", nil)
		}

		log.Println("Send campaign failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send campaign", "SEND_CAMPAIGN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign queued for delivery", fiber.Map{
		"uuid":             result.UUID,
		"status":           result.Status,
		"total_recipients": result.TotalRecipients,
	})
}

// RecordManualDelivery records an out-of-band delivery outcome for one channel
// @Summary Record Manual Delivery
// @Description Record a delivery outcome performed outside the system for one campaign channel
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.ManualDeliveryRequest true "Manual delivery outcome"
// @Success 200 {object} dto.APIResponse{data=dto.ManualDeliveryResponse} "Delivery recorded"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Campaign or channel not found"
// @Failure 409 {object} dto.APIResponse "Channel already reached a terminal status"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/manual-delivery [post]
func (h *CampaignHandler) RecordManualDelivery(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.ManualDeliveryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = campaignUUID

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information; the authenticated identity attributes the
	// out-of-band send.
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if username, ok := c.Locals("username").(string); ok && username != "" {
		metadata.AddAdditional("operator", username)
	}
	if claims, ok := c.Locals("token_claims").(*services.TokenClaims); ok && claims.FullName != "" {
		metadata.AddAdditional("operator_name", claims.FullName)
	}

	// Call business logic with proper context
	result, err := h.deliveryFlow.RecordManualDelivery(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/manual-delivery"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsChannelNotFound(err) || businessflow.IsChannelCampaignMismatch(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Channel not found for this campaign", "CHANNEL_NOT_FOUND", nil)
		}
		if businessflow.IsChannelAlreadyTerminal(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Channel already reached a terminal status", "CHANNEL_ALREADY_TERMINAL", nil)
		}
		if businessflow.IsRecipientsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Recipient is required", "RECIPIENT_REQUIRED", nil)
		}

		log.Println("Manual delivery recording failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record manual delivery", "MANUAL_DELIVERY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Manual delivery recorded", fiber.Map{
		"delivery_uuid":  result.DeliveryUUID,
		"channel_uuid":   result.ChannelUUID,
		"channel_status": result.ChannelStatus,
	})
}

// PreviewRecipients resolves an audience definition without creating a campaign
// @Summary Preview Recipients
// @Description Resolve an audience definition against the student directory and return the recipient list
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.PreviewRecipientsRequest true "Audience definition"
// @Success 200 {object} dto.APIResponse{data=dto.PreviewRecipientsResponse} "Recipients resolved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 422 {object} dto.APIResponse "Audience cannot be resolved"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/preview-recipients [post]
func (h *CampaignHandler) PreviewRecipients(c fiber.Ctx) error {
	var req dto.PreviewRecipientsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Call business logic with proper context
	result, err := h.recipients.PreviewRecipients(h.createRequestContext(c, "/api/v1/campaigns/preview-recipients"), &req, metadata)
	if err != nil {
		if businessflow.IsAudienceTypeRequired(err) || businessflow.IsAudienceTypeInvalid(err) ||
			businessflow.IsRecipientsRequired(err) || businessflow.IsDepartmentsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid audience definition", "INVALID_AUDIENCE", err.Error())
		}
		if businessflow.IsAudienceNotResolvable(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Audience cannot be resolved with the current student directory", "AUDIENCE_NOT_RESOLVABLE", nil)
		}

		log.Println("Preview recipients failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to preview recipients", "PREVIEW_RECIPIENTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients resolved successfully", fiber.Map{
		"recipients": result.Recipients,
		"total":      result.Total,
		"truncated":  result.Truncated,
	})
}

// ListChannelProfiles returns the active sender profiles
// @Summary List Channel Profiles
// @Description Retrieve the active sender profiles available for channel delivery
// @Tags Channel Profiles
// @Accept json
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListChannelProfilesResponse}
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/channel-profiles [get]
func (h *CampaignHandler) ListChannelProfiles(c fiber.Ctx) error {
	// Client metadata
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListChannelProfiles(h.createRequestContext(c, "/api/v1/channel-profiles"), metadata)
	if err != nil {
		log.Println("List channel profiles failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list channel profiles", "LIST_PROFILES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Channel profiles retrieved successfully", fiber.Map{
		"profiles": result.Profiles,
	})
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *CampaignHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	// Create context with custom timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "timeout", timeout)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
