package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Conversion Errors (CNV001-CNV099)
//
//	CNV001 - No data: the input produced an empty table
//	CNV002 - Unknown format: the requested output format is not supported
//	CNV003 - Busy: every conversion slot is taken
//
// # Input Errors (FILE001-FILE099)
//
//	FILE001 - Input too large: input exceeds the configured size limit
//	FILE004 - No input: the request did not carry any CSV text or file
//
// # Snippet Errors (SNP001-SNP099)
//
//	SNP001 - Snippet not found
//	SNP002 - Invalid snippet ID
//
// # Database Errors (DB004-DB006)
//
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # Request Errors (REQ001, UPL004-UPL005, RATE001)
//
//	REQ001 - Malformed request body or parameter
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//	RATE001 - Rate limited
//
// # Default (ERR000)
//
// Returned when nothing matches. Check the logs for the technical error.
//
// Sentinel errors are matched first with errors.Is. Anything else is matched
// against lower-cased substrings; the first pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/render"
)

var (
	// ErrNoInput is returned when a request has no CSV text at all.
	ErrNoInput = errors.New("no input provided")

	// ErrInvalidRequest marks malformed request bodies and parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgNoData = UserMessage{
		Message: "No data found in the CSV input",
		Action:  "Paste at least one non-empty row of comma-separated values",
		Code:    "CNV001",
	}
	msgUnknownFormat = UserMessage{
		Message: "Unsupported output format",
		Action:  "Choose either html or block",
		Code:    "CNV002",
	}
	msgBusy = UserMessage{
		Message: "The converter is busy",
		Action:  "Please wait a moment and try again",
		Code:    "CNV003",
	}
	msgTooLarge = UserMessage{
		Message: "Input exceeds the maximum size limit",
		Action:  "Split the CSV into smaller pieces",
		Code:    "FILE001",
	}
	msgNoInput = UserMessage{
		Message: "No CSV input was provided",
		Action:  "Paste CSV text or choose a file",
		Code:    "FILE004",
	}
	msgSnippetNotFound = UserMessage{
		Message: "Saved conversion not found",
		Action:  "It may have been deleted. Convert the CSV again",
		Code:    "SNP001",
	}
	msgInvalidSnippetID = UserMessage{
		Message: "Invalid saved conversion ID",
		Action:  "Check the link you followed",
		Code:    "SNP002",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request could not be read",
		Action:  "Check the request body and parameters",
		Code:    "REQ001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller input or try again later",
		Code:    "UPL005",
	}
)

// sentinelMessages is checked with errors.Is before any string matching.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{render.ErrNoData, msgNoData},
	{render.ErrUnknownFormat, msgUnknownFormat},
	{ErrTooManyConversions, msgBusy},
	{csvparse.ErrInputTooLarge, msgTooLarge},
	{ErrNoInput, msgNoInput},
	{ErrSnippetNotFound, msgSnippetNotFound},
	{ErrInvalidSnippetID, msgInvalidSnippetID},
	{ErrInvalidRequest, msgInvalidRequest},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgDeadline},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive without a sentinel, mostly from the
// database driver and the HTTP layer. Specific patterns come first.
var errorPatterns = []errorPattern{
	{"no data", msgNoData},
	{"unknown format", msgUnknownFormat},
	{"too many concurrent", msgBusy},
	{"too large", msgTooLarge},
	{"request body too large", msgTooLarge},
	{"no input", msgNoInput},
	{"snippet not found", msgSnippetNotFound},
	{"invalid snippet id", msgInvalidSnippetID},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller input or try again later",
		Code:    "DB006",
	}},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgDeadline},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("render: %w", render.ErrNoData))
//	// msg.Code == "CNV001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err with its mapped message. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
