package poller

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/homework-notifier/internal/domain/shared"
	"github.com/alem-hub/homework-notifier/pkg/logger"
)

const (
	testChat = "-100500"

	approvedText  = `Changed review status of "A". The work has been reviewed: the reviewer liked everything. Hooray!`
	reviewingText = `Changed review status of "B". The work has been taken for review by the reviewer.`
	rejectedText  = `Changed review status of "C". The work has been reviewed: the reviewer has comments.`
)

func newTestCycle(f *mockFetcher, s *mockSender, skipUnchanged bool) *Cycle {
	log := logger.Nop()
	return NewCycle(f, NewNotifier(s, log), CycleConfig{ChatID: testChat, SkipUnchanged: skipUnchanged}, log)
}

func TestRunOnce_SingleApproved(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(900)).
		Return([]byte(`{"homeworks": [{"homework_name": "A", "status": "approved"}], "current_date": 1000}`), nil)
	s.On("SendText", mock.Anything, testChat, approvedText).Return(nil)

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 900)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), next)
	s.AssertNumberOfCalls(t, "SendText", 1)
	f.AssertExpectations(t)
}

func TestRunOnce_NotifiesInPayloadOrder(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(1)).Return([]byte(`{
		"homeworks": [
			{"homework_name": "C", "status": "rejected"},
			{"homework_name": "A", "status": "approved"},
			{"homework_name": "B", "status": "reviewing"}
		],
		"current_date": 5
	}`), nil)
	s.On("SendText", mock.Anything, testChat, mock.Anything).Return(nil)

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, int64(5), next)
	assert.Equal(t, []string{rejectedText, approvedText, reviewingText}, s.sentTexts())
}

func TestRunOnce_EmptyListKeepsCursor(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(42)).Return([]byte(`{"homeworks": []}`), nil)

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), next)
	s.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOnce_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing homeworks", `{"current_date": 10}`},
		{"homeworks is object", `{"homeworks": {"homework_name": "A", "status": "approved"}}`},
		{"homeworks is string", `{"homeworks": "A"}`},
		{"payload is array", `[{"homeworks": []}]`},
		{"payload is not json", `<html>maintenance</html>`},
		{"unknown status", `{"homeworks": [{"homework_name": "B", "status": "unknown"}]}`},
		{"current_date is string", `{"homeworks": [], "current_date": "soon"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := new(mockFetcher)
			s := new(mockSender)
			f.On("FetchStatuses", mock.Anything, int64(7)).Return([]byte(tt.body), nil)

			next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 7)

			require.Error(t, err)
			assert.True(t, shared.IsSchema(err))
			assert.Equal(t, int64(7), next)
			s.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRunOnce_UnknownStatusStopsRemainingEntries(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(1)).Return([]byte(`{
		"homeworks": [
			{"homework_name": "A", "status": "approved"},
			{"homework_name": "X", "status": "lost"},
			{"homework_name": "C", "status": "rejected"}
		],
		"current_date": 99
	}`), nil)
	s.On("SendText", mock.Anything, testChat, mock.Anything).Return(nil)

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 1)

	require.Error(t, err)
	assert.True(t, shared.IsSchema(err))
	assert.Contains(t, err.Error(), `"lost"`)
	assert.Equal(t, int64(1), next)
	assert.Equal(t, []string{approvedText}, s.sentTexts())
}

func TestRunOnce_MissingFieldIsSchemaError(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(1)).
		Return([]byte(`{"homeworks": [{"homework_name": "A"}]}`), nil)

	_, err := newTestCycle(f, s, false).RunOnce(context.Background(), 1)

	require.Error(t, err)
	assert.True(t, shared.IsSchema(err))
	s.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOnce_DeliveryErrorKeepsCursor(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(1)).Return([]byte(`{
		"homeworks": [
			{"homework_name": "A", "status": "approved"},
			{"homework_name": "B", "status": "reviewing"}
		],
		"current_date": 50
	}`), nil)
	s.On("SendText", mock.Anything, testChat, approvedText).Return(errors.New("chat not found")).Once()

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 1)

	require.Error(t, err)
	assert.True(t, shared.IsDelivery(err))
	assert.Equal(t, int64(1), next)
	s.AssertNumberOfCalls(t, "SendText", 1)
}

func TestRunOnce_FetchErrorPassesThrough(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	fetchErr := shared.NewDomainError("practicum", "Fetch", shared.ErrEndpointUnavailable, "http status 503")
	f.On("FetchStatuses", mock.Anything, int64(3)).Return(nil, fetchErr)

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrEndpointUnavailable))
	assert.Equal(t, int64(3), next)
}

func TestRunOnce_CursorNeverDecreases(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(2000)).Return([]byte(`{"homeworks": [], "current_date": 1500}`), nil)

	next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 2000)

	require.NoError(t, err)
	assert.Equal(t, int64(2000), next)
}

func TestRunOnce_SkipUnchanged(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	body := []byte(`{"homeworks": [{"homework_name": "A", "status": "approved"}], "current_date": 10}`)
	f.On("FetchStatuses", mock.Anything, mock.Anything).Return(body, nil)
	s.On("SendText", mock.Anything, testChat, approvedText).Return(nil)

	cycle := newTestCycle(f, s, true)
	ctx := context.Background()

	_, err := cycle.RunOnce(ctx, 1)
	require.NoError(t, err)
	_, err = cycle.RunOnce(ctx, 10)
	require.NoError(t, err)

	s.AssertNumberOfCalls(t, "SendText", 1)
}

func TestRunOnce_NotifiesRepeatsByDefault(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	body := []byte(`{"homeworks": [{"homework_name": "A", "status": "approved"}], "current_date": 10}`)
	f.On("FetchStatuses", mock.Anything, mock.Anything).Return(body, nil)
	s.On("SendText", mock.Anything, testChat, approvedText).Return(nil)

	cycle := newTestCycle(f, s, false)
	ctx := context.Background()

	_, err := cycle.RunOnce(ctx, 1)
	require.NoError(t, err)
	_, err = cycle.RunOnce(ctx, 10)
	require.NoError(t, err)

	s.AssertNumberOfCalls(t, "SendText", 2)
}

func TestRunOnce_MalformedEntryAfterValidOne(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"number", `42`, "homework #1 is number"},
		{"name not string", `{"homework_name": 7, "status": "approved"}`, `"homework_name" is number`},
		{"status not string", `{"homework_name": "B", "status": ["reviewing"]}`, `"status" is array`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := new(mockFetcher)
			s := new(mockSender)
			body := `{"homeworks": [{"homework_name": "A", "status": "approved"}, ` + tt.entry + `], "current_date": 20}`
			f.On("FetchStatuses", mock.Anything, int64(1)).Return([]byte(body), nil)
			s.On("SendText", mock.Anything, testChat, approvedText).Return(nil)

			next, err := newTestCycle(f, s, false).RunOnce(context.Background(), 1)

			require.Error(t, err)
			assert.True(t, shared.IsSchema(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, int64(1), next)
			assert.Equal(t, []string{approvedText}, s.sentTexts())
		})
	}
}

func TestRunOnce_EmptyNameIsDelivered(t *testing.T) {
	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(1)).
		Return([]byte(`{"homeworks": [{"homework_name": "", "status": "rejected"}]}`), nil)
	s.On("SendText", mock.Anything, testChat, `Changed review status of "". The work has been reviewed: the reviewer has comments.`).Return(nil)

	_, err := newTestCycle(f, s, false).RunOnce(context.Background(), 1)

	require.NoError(t, err)
	s.AssertNumberOfCalls(t, "SendText", 1)
}

func TestRunOnce_LogsAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo, Format: logger.FormatText})

	f := new(mockFetcher)
	s := new(mockSender)
	f.On("FetchStatuses", mock.Anything, int64(5)).Return([]byte(`{"homeworks": []}`), nil)

	cycle := NewCycle(f, NewNotifier(s, log), CycleConfig{ChatID: testChat}, log)
	_, err := cycle.RunOnce(context.Background(), 5)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "INFO, polling status endpoint")
	assert.Contains(t, out, "INFO, no status changes")
	assert.Contains(t, out, "INFO, poll cycle finished")
	assert.Contains(t, out, "from_date=5")
}
