package message_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/message"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/usecasetest"
)

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	repo := usecasetest.NewMessageRepository()
	notifier := &usecasetest.Notifier{}
	realtime := &usecasetest.Realtime{}
	uc := message.NewSendMessageUseCase(repo, usecasetest.Users{alice: true, bob: true}, notifier, realtime)

	msg, err := uc.Execute(ctx, alice, bob, "  Привет!  ")
	require.NoError(t, err)
	assert.Equal(t, "Привет!", msg.Content)

	_, err = uc.Execute(ctx, alice, bob, "Как дела?")
	require.NoError(t, err)

	require.Len(t, realtime.Events, 2)
	assert.Equal(t, bob, realtime.Events[0].UserID)
	assert.Equal(t, message.EventMessageNew, realtime.Events[0].Event)
	require.Len(t, notifier.Events, 1, "уведомление только о первом сообщении в переписке")
	assert.Equal(t, valueobject.NotificationNewMessage, notifier.Events[0].Type)
}

func TestSendMessage_Invalid(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	uc := message.NewSendMessageUseCase(usecasetest.NewMessageRepository(), usecasetest.Users{alice: true}, &usecasetest.Notifier{}, &usecasetest.Realtime{})

	tests := []struct {
		name     string
		receiver uuid.UUID
		content  string
		check    func(error) bool
	}{
		{"empty", uuid.New(), "   ", apperror.IsValidation},
		{"too long", uuid.New(), strings.Repeat("я", 5001), apperror.IsValidation},
		{"to self", alice, "эхо", apperror.IsValidation},
		{"unknown receiver", uuid.New(), "привет", apperror.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(ctx, alice, tt.receiver, tt.content)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestConversation_MarksRead(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	repo := usecasetest.NewMessageRepository()
	send := message.NewSendMessageUseCase(repo, usecasetest.Users{alice: true, bob: true}, &usecasetest.Notifier{}, &usecasetest.Realtime{})
	for _, text := range []string{"раз", "два", "три"} {
		_, err := send.Execute(ctx, alice, bob, text)
		require.NoError(t, err)
	}

	unread, err := message.NewUnreadCountUseCase(repo).Execute(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	convs, err := message.NewListConversationsUseCase(repo).Execute(ctx, bob)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, alice, convs[0].PartnerID)
	assert.Equal(t, "три", convs[0].LastMessage.Content)
	assert.Equal(t, 3, convs[0].UnreadCount)

	msgs, total, err := message.NewGetConversationUseCase(repo).Execute(ctx, bob, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, msgs, 3)

	unread, err = message.NewUnreadCountUseCase(repo).Execute(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMarkRead_ReceiverOnly(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	repo := usecasetest.NewMessageRepository()
	realtime := &usecasetest.Realtime{}
	send := message.NewSendMessageUseCase(repo, usecasetest.Users{alice: true, bob: true}, &usecasetest.Notifier{}, &usecasetest.Realtime{})
	msg, err := send.Execute(ctx, alice, bob, "проверь почту")
	require.NoError(t, err)
	uc := message.NewMarkReadUseCase(repo, realtime)

	assert.True(t, apperror.IsForbidden(uc.Execute(ctx, msg.ID, alice)))
	require.NoError(t, uc.Execute(ctx, msg.ID, bob))
	require.NoError(t, uc.Execute(ctx, msg.ID, bob))

	require.Len(t, realtime.Events, 1)
	assert.Equal(t, alice, realtime.Events[0].UserID)
	assert.Equal(t, message.EventMessageRead, realtime.Events[0].Event)

	assert.True(t, apperror.IsNotFound(uc.Execute(ctx, uuid.New(), bob)))
}
