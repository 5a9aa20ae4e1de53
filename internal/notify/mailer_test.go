package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueryMessage(t *testing.T) {
	msg := PendingQueryMessage([]string{"office@example.com"}, model.ModerationEvent{
		Type:      model.EventQueryPending,
		QueryID:   12,
		UserName:  "Ravi",
		QueryText: "Is there a swimming pool?",
		Reason:    "no_match",
	})

	assert.Equal(t, []string{"office@example.com"}, msg.To)
	assert.Equal(t, "New pending query #12", msg.Subject)
	assert.Contains(t, msg.Text, "Ravi asked")
	assert.Contains(t, msg.Text, "Is there a swimming pool?")
	assert.Contains(t, msg.Text, "Reason: no_match")
}

func TestPendingQueryMessage_UnknownName(t *testing.T) {
	msg := PendingQueryMessage(nil, model.ModerationEvent{QueryID: 1, UserID: 9})
	assert.Contains(t, msg.Text, "user #9 asked")
	assert.NotContains(t, msg.Text, "Reason:")
}

func TestSendgridMailer_Prepare(t *testing.T) {
	m := NewSendgridMailer("key", "Enquiry Desk", "noreply@example.com")
	v3 := m.prepare(Message{To: []string{"a@example.com", "b@example.com"}, Subject: "Hi", Text: "Body"})

	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "[Enquiry Desk] Hi", v3.Personalizations[0].Subject)
	assert.Len(t, v3.Personalizations[0].To, 2)
	assert.Equal(t, "noreply@example.com", v3.From.Address)
	require.Len(t, v3.Content, 1)
	assert.Equal(t, "text/plain", v3.Content[0].Type)
}

func TestSendgridMailer_NoRecipients(t *testing.T) {
	m := NewSendgridMailer("key", "Enquiry Desk", "noreply@example.com")
	assert.NoError(t, m.Send(context.Background(), Message{Subject: "x"}))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf))

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi"}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "mailer", line["component"])
	assert.Equal(t, "Hi", line["subject"])
}
