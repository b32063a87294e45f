package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationManager_SendPasswordReset(t *testing.T) {
	mock := &MockNotifier{}
	nm := NewNotificationManager("https://example.com/", mock)

	err := nm.SendPasswordReset("user@example.com", "tok en+value")
	require.NoError(t, err)

	require.Len(t, mock.Sent, 1)
	sent := mock.Sent[0]
	assert.Equal(t, NoticePasswordReset, sent.Type)
	assert.Equal(t, "user@example.com", sent.Data.To)
	// Token must be query-escaped and the base URL joined without a double slash
	assert.Equal(t, "https://example.com/reset-password?token=tok+en%2Bvalue", sent.Data.Data["Link"])
}

func TestNotificationManager_SendMFACode(t *testing.T) {
	mock := &MockNotifier{}
	nm := NewNotificationManager("https://example.com", mock)

	err := nm.SendMFACode("user@example.com", "042917")
	require.NoError(t, err)

	require.Len(t, mock.Sent, 1)
	assert.Equal(t, NoticeMFACode, mock.Sent[0].Type)
	assert.Equal(t, "042917", mock.Sent[0].Data.Data["Code"])
	assert.NotEmpty(t, mock.Sent[0].Template.Subject)
}

func TestNotificationManager_SendVerificationCode(t *testing.T) {
	mock := &MockNotifier{}
	nm := NewNotificationManager("https://example.com", mock)

	err := nm.SendVerificationCode("user@example.com", "123456")
	require.NoError(t, err)

	require.Len(t, mock.Sent, 1)
	assert.Equal(t, NoticeVerificationCode, mock.Sent[0].Type)
}

func TestNotificationManager_TemplateOverride(t *testing.T) {
	mock := &MockNotifier{}
	custom := NoticeTemplate{Subject: "Custom", Text: "code: {{.Code}}"}
	nm := NewNotificationManager("https://example.com", mock,
		WithTemplate(NoticeMFACode, custom))

	require.NoError(t, nm.SendMFACode("user@example.com", "000000"))

	require.Len(t, mock.Sent, 1)
	assert.Equal(t, "Custom", mock.Sent[0].Template.Subject)
}
