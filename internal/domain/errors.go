package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserDisabled       = errors.New("user_disabled")
	ErrTokenNotFound      = errors.New("token_not_found")
	ErrTokenExpired       = errors.New("token_expired")
	ErrChannelBusy        = errors.New("channel_busy")
	ErrAllChannelsFailed  = errors.New("all_channels_failed")
	ErrValidation         = errors.New("validation")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// ChannelBusyError reports that every outbound email channel is still inside
// its cooldown window. RetryAfter is how long until the earliest channel
// frees up.
type ChannelBusyError struct {
	RetryAfter time.Duration
}

func (e *ChannelBusyError) Error() string {
	return fmt.Sprintf("email channels busy, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *ChannelBusyError) Unwrap() error { return ErrChannelBusy }

func NewChannelBusyError(retryAfter time.Duration) error {
	return &ChannelBusyError{RetryAfter: retryAfter}
}
