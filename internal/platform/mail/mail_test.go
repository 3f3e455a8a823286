// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestRender verifies both templates and the unknown-template error.
*/
func TestRender(t *testing.T) {
	body, err := Render(PasswordReset("ana@example.com", "Ana Lopez", "http://x/api/v1/users/resetPassword/abc"))
	require.NoError(t, err)
	assert.Contains(t, body, "Hi Ana,")
	assert.Contains(t, body, "http://x/api/v1/users/resetPassword/abc")

	body, err = Render(Welcome("bo@example.com", "Bo", "http://x/me"))
	require.NoError(t, err)
	assert.Contains(t, body, "Welcome to Trailhead")

	_, err = Render(Message{Template: "missing"})
	assert.Error(t, err)
}

/*
TestLogSender verifies that the log transport records the rendered message.
*/
func TestLogSender(t *testing.T) {
	var buffer bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewJSONHandler(&buffer, nil)), "noreply@trailhead.app")

	require.NoError(t, sender.Send(context.Background(), Welcome("bo@example.com", "Bo", "http://x/me")))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &record))
	assert.Equal(t, "mail_sent", record["msg"])
	assert.Equal(t, "bo@example.com", record["to"])
	assert.Equal(t, SubjectWelcome, record["subject"])
}

/*
TestEncode verifies the persistent JSON publishing consumed by the worker.
*/
func TestEncode(t *testing.T) {
	message := PasswordReset("ana@example.com", "Ana", "http://x/reset/abc")
	publishing, err := encode("noreply@trailhead.app", message)
	require.NoError(t, err)

	assert.Equal(t, amqp.Persistent, publishing.DeliveryMode)
	assert.Equal(t, "application/json", publishing.ContentType)
	assert.Equal(t, TemplatePasswordReset, publishing.Type)

	var decoded envelope
	require.NoError(t, json.Unmarshal(publishing.Body, &decoded))
	assert.Equal(t, "noreply@trailhead.app", decoded.From)
	assert.Equal(t, message, decoded.Message)
	assert.Contains(t, decoded.Text, "http://x/reset/abc")
}
