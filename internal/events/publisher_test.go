package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/events"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "milestone_submitted", events.RoutingKey("MILESTONE_SUBMITTED"))
	assert.Equal(t, "new_proposal", events.RoutingKey("NEW_PROPOSAL"))
}

func TestFromNotification_Body(t *testing.T) {
	sender := uuid.New()
	contractID := uuid.New()
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := &models.Notification{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		SenderID:   &sender,
		Type:       "PAYMENT_RELEASED",
		ContractID: &contractID,
		Message:    "Оплата этапа переведена",
		CreatedAt:  createdAt,
	}

	body, err := json.Marshal(events.FromNotification(n))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, n.ID.String(), decoded["id"])
	assert.Equal(t, "PAYMENT_RELEASED", decoded["type"])
	assert.Equal(t, n.UserID.String(), decoded["user_id"])
	assert.Equal(t, sender.String(), decoded["sender_id"])
	assert.Equal(t, "2025-03-01T12:00:00Z", decoded["occurred_at"])

	refs, ok := decoded["refs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, contractID.String(), refs["contract_id"])
	assert.NotContains(t, refs, "job_id")
}
