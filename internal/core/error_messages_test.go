package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/render"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error", nil, ""},
		{"no data sentinel", render.ErrNoData, "CNV001"},
		{"wrapped no data", fmt.Errorf("render: %w", render.ErrNoData), "CNV001"},
		{"unknown format", fmt.Errorf("%w: %q", render.ErrUnknownFormat, "pdf"), "CNV002"},
		{"busy", ErrTooManyConversions, "CNV003"},
		{"input too large", fmt.Errorf("read input: %w", csvparse.ErrInputTooLarge), "FILE001"},
		{"http body too large", errors.New("http: request body too large"), "FILE001"},
		{"no input", ErrNoInput, "FILE004"},
		{"snippet not found", fmt.Errorf("get snippet: %w", ErrSnippetNotFound), "SNP001"},
		{"invalid snippet id", ErrInvalidSnippetID, "SNP002"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB004"},
		{"connection reset", errors.New("read: connection reset by peer"), "DB005"},
		{"driver timeout", errors.New("i/o timeout"), "DB006"},
		{"cancelled", fmt.Errorf("convert: %w", context.Canceled), "UPL004"},
		{"deadline", context.DeadlineExceeded, "UPL005"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("CONNECTION REFUSED"), "DB004"},
		{"unknown", errors.New("something odd happened"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestMapError_AllCodesHaveGuidance(t *testing.T) {
	for _, s := range sentinelMessages {
		assert.NotEmpty(t, s.msg.Message, s.msg.Code)
		assert.NotEmpty(t, s.msg.Action, s.msg.Code)
	}
	for _, p := range errorPatterns {
		assert.NotEmpty(t, p.msg.Message, p.pattern)
		assert.NotEmpty(t, p.msg.Action, p.pattern)
		assert.NotEmpty(t, p.msg.Code, p.pattern)
	}
}

func TestFormatUserError(t *testing.T) {
	assert.Empty(t, FormatUserError(nil))
	assert.Equal(t,
		"No data found in the CSV input (Code: CNV001). Paste at least one non-empty row of comma-separated values",
		FormatUserError(render.ErrNoData))
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.False(t, IsUserFacing(errors.New("boom")))
	assert.True(t, IsUserFacing(ErrTooManyConversions))
}

func TestUserError(t *testing.T) {
	assert.Nil(t, NewUserError(nil))

	inner := fmt.Errorf("lookup: %w", ErrSnippetNotFound)
	ue := NewUserError(inner)
	require.NotNil(t, ue)

	assert.Equal(t, "Saved conversion not found", ue.Error())
	assert.ErrorIs(t, ue, ErrSnippetNotFound)

	wrapped := fmt.Errorf("handler: %w", ue)
	assert.Equal(t, "SNP001", MapError(wrapped).Code)
}

func TestUserError_OverridesPatterns(t *testing.T) {
	custom := &UserError{
		Technical: errors.New("connection refused"),
		User:      UserMessage{Message: "custom", Action: "none", Code: "X1"},
	}
	assert.Equal(t, "X1", MapError(custom).Code)
}
