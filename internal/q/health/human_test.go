package health

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanError(t *testing.T) {
	err := NewHumanErr("Could not find the selected text.", "select_failed", "needle", "Seller")
	assert.Equal(t, "Could not find the selected text.", err.Error())
	assert.Equal(t, "select_failed[needle=Seller]", err.(*HumanErr).HealthErr.Error())

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	LogErr(logger, err)
	assert.Contains(t, buf.String(), `msg=select_failed needle=Seller`)
}

func TestWrapHuman(t *testing.T) {
	base := errors.New("host rejected delete")
	err := WrapHuman("could not complete the redline: host rejected delete", "redline.apply", base, "step", 3)

	assert.Equal(t, "could not complete the redline: host rejected delete", err.Error())
	assert.ErrorIs(t, err, base)

	var buf strings.Builder
	LogErr(slog.New(slog.NewTextHandler(&buf, nil)), err)
	assert.Contains(t, buf.String(), `msg=redline.apply step=3 via="host rejected delete"`)

	assert.Error(t, WrapHuman("x", "y", nil))
}

func TestUserMessage(t *testing.T) {
	human := NewHumanErr("friendly", "internal")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("plain"), want: "plain"},
		{name: "human", err: human, want: "friendly"},
		{name: "wrapped human", err: fmt.Errorf("outer: %w", human), want: "friendly"},
		{name: "empty human message", err: &HumanErr{HealthErr: HealthErr{Message: "internal"}}, want: "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
