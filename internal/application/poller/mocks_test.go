package poller

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchStatuses(ctx context.Context, fromDate int64) ([]byte, error) {
	args := m.Called(ctx, fromDate)
	if b, _ := args.Get(0).([]byte); b != nil {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) SendText(ctx context.Context, chatID string, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

// sentTexts returns the texts of all SendText calls in call order.
func (m *mockSender) sentTexts() []string {
	var texts []string
	for _, call := range m.Calls {
		if call.Method == "SendText" {
			texts = append(texts, call.Arguments.String(2))
		}
	}
	return texts
}
