// Package businessflow contains the core business logic and use cases for campaign delivery workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignNotEditable      = errors.New("campaign is not editable in its current status")
	ErrCampaignNotSendable      = errors.New("campaign cannot be sent in its current status")
	ErrCampaignTitleRequired    = errors.New("campaign title is required")
	ErrCampaignMessageRequired  = errors.New("campaign message is required")
	ErrCampaignChannelsRequired = errors.New("at least one channel is required")
	ErrDuplicateChannelType     = errors.New("channel types must be unique per campaign")
	ErrCampaignUUIDRequired     = errors.New("campaign UUID is required")

	// Audience-related errors
	ErrAudienceTypeRequired   = errors.New("audience type is required")
	ErrAudienceTypeInvalid    = errors.New("audience type is invalid")
	ErrRecipientsRequired     = errors.New("custom audiences require at least one recipient")
	ErrDepartmentsRequired    = errors.New("department audiences require at least one department")
	ErrAudienceNotResolvable  = errors.New("audience cannot be resolved for this deployment")
	ErrNoContactableRecipient = errors.New("no contactable recipients matched the audience")

	// Channel and profile errors
	ErrChannelNotFound         = errors.New("campaign channel not found")
	ErrChannelTypeInvalid      = errors.New("channel type is invalid")
	ErrChannelAlreadyTerminal  = errors.New("campaign channel already reached a final status")
	ErrChannelCampaignMismatch = errors.New("channel does not belong to this campaign")
	ErrProfileNotFound         = errors.New("no active sender profile for channel type")
	ErrProfileIdentityInvalid  = errors.New("sender identity does not fit the channel type")

	// Cache errors
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNotEditable(err error) bool {
	return errors.Is(err, ErrCampaignNotEditable)
}

func IsCampaignNotSendable(err error) bool {
	return errors.Is(err, ErrCampaignNotSendable)
}

func IsCampaignTitleRequired(err error) bool {
	return errors.Is(err, ErrCampaignTitleRequired)
}

func IsCampaignMessageRequired(err error) bool {
	return errors.Is(err, ErrCampaignMessageRequired)
}

func IsCampaignChannelsRequired(err error) bool {
	return errors.Is(err, ErrCampaignChannelsRequired)
}

func IsDuplicateChannelType(err error) bool {
	return errors.Is(err, ErrDuplicateChannelType)
}

func IsCampaignUUIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignUUIDRequired)
}

func IsAudienceTypeRequired(err error) bool {
	return errors.Is(err, ErrAudienceTypeRequired)
}

func IsAudienceTypeInvalid(err error) bool {
	return errors.Is(err, ErrAudienceTypeInvalid)
}

func IsRecipientsRequired(err error) bool {
	return errors.Is(err, ErrRecipientsRequired)
}

func IsDepartmentsRequired(err error) bool {
	return errors.Is(err, ErrDepartmentsRequired)
}

func IsAudienceNotResolvable(err error) bool {
	return errors.Is(err, ErrAudienceNotResolvable)
}

func IsNoContactableRecipient(err error) bool {
	return errors.Is(err, ErrNoContactableRecipient)
}

func IsChannelNotFound(err error) bool {
	return errors.Is(err, ErrChannelNotFound)
}

func IsChannelTypeInvalid(err error) bool {
	return errors.Is(err, ErrChannelTypeInvalid)
}

func IsChannelAlreadyTerminal(err error) bool {
	return errors.Is(err, ErrChannelAlreadyTerminal)
}

func IsChannelCampaignMismatch(err error) bool {
	return errors.Is(err, ErrChannelCampaignMismatch)
}

func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

func IsProfileIdentityInvalid(err error) bool {
	return errors.Is(err, ErrProfileIdentityInvalid)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
