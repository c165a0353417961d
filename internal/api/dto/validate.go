package dto

import apperrors "github.com/relaydesk/live-chat/pkg/util"

// Validate checks a request payload's struct tags.
func Validate(v any) error {
	return apperrors.Validate(v)
}
