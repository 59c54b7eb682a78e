package poller

import (
	"context"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
	"github.com/alem-hub/homework-notifier/pkg/logger"
)

// MessageSender delivers plain text to a chat.
// Implemented by the Telegram client.
type MessageSender interface {
	SendText(ctx context.Context, chatID string, text string) error
}

// Notifier sends notification texts through a MessageSender.
type Notifier struct {
	sender MessageSender
	logger *logger.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(sender MessageSender, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Default()
	}
	return &Notifier{sender: sender, logger: log}
}

// Notify sends text to chatID. Any transport failure is returned as a
// shared.ErrDelivery error.
func (n *Notifier) Notify(ctx context.Context, chatID, text string) error {
	if err := n.sender.SendText(ctx, chatID, text); err != nil {
		return shared.WrapError("poller", "Notify", shared.ErrDelivery, "message was not delivered", err)
	}

	n.logger.Debug("message sent", logger.ChatID(chatID), logger.String("text", text))
	return nil
}
