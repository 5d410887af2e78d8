package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsoleSenderLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewConsoleSender(zap.New(core))

	err := sender.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hi", HTMLBody: "<p>x</p>"})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hi", logs.All()[0].ContextMap()["subject"])
}

func TestSendersRejectEmptyRecipients(t *testing.T) {
	assert.ErrorIs(t, NewConsoleSender(nil).Send(context.Background(), Message{}), ErrNoRecipients)
	assert.ErrorIs(t, NewSendGridSender("k", "Classroom", "no-reply@example.com").Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestSendGridSenderBuildsRequest(t *testing.T) {
	sender := NewSendGridSender("key", "Classroom", "no-reply@example.com")
	var captured rest.Request
	sender.do = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	err := sender.Send(context.Background(), Message{To: []string{"s@example.com"}, Subject: "New Assignment", HTMLBody: "<p>read</p>"})
	require.NoError(t, err)
	assert.Equal(t, rest.Post, captured.Method)
	assert.Equal(t, "Bearer key", captured.Headers["Authorization"])

	var body struct {
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Classroom] New Assignment", body.Personalizations[0].Subject)
	assert.Equal(t, "s@example.com", body.Personalizations[0].To[0].Email)
}

func TestSendGridSenderSurfacesErrorStatus(t *testing.T) {
	sender := NewSendGridSender("key", "", "no-reply@example.com")
	sender.do = func(req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}
	err := sender.Send(context.Background(), Message{To: []string{"s@example.com"}})
	assert.ErrorContains(t, err, "401")
}
