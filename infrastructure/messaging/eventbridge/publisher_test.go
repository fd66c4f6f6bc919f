package eventbridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/messaging/eventbridge"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) PutEvents(ctx context.Context, in *awseventbridge.PutEventsInput, _ ...func(*awseventbridge.Options)) (*awseventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*awseventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func events(n int) []ports.ContentEvent {
	out := make([]ports.ContentEvent, n)
	for i := range out {
		out[i] = ports.ContentEvent{ID: "e", Type: ports.EventContentCreated, Path: "/doc/", OccurredAt: time.Now()}
	}
	return out
}

func TestPublisher_Publish_Batches(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	publisher := eventbridge.NewPublisher(client, "bus", zap.NewNop())

	client.On("PutEvents", ctx, mock.MatchedBy(func(in *awseventbridge.PutEventsInput) bool {
		return len(in.Entries) == 10 && aws.ToString(in.Entries[0].Source) == eventbridge.Source
	})).Return(&awseventbridge.PutEventsOutput{}, nil).Once()
	client.On("PutEvents", ctx, mock.MatchedBy(func(in *awseventbridge.PutEventsInput) bool {
		return len(in.Entries) == 2
	})).Return(&awseventbridge.PutEventsOutput{}, nil).Once()

	require.NoError(t, publisher.Publish(ctx, events(12)))
	client.AssertExpectations(t)
}

func TestPublisher_Publish_FailedEntries(t *testing.T) {
	ctx := context.Background()
	client := new(MockClient)
	publisher := eventbridge.NewPublisher(client, "bus", zap.NewNop())

	client.On("PutEvents", ctx, mock.Anything).Return(&awseventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
		},
	}, nil)

	err := publisher.Publish(ctx, events(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 events failed")
}

func TestPublisher_Publish_Empty(t *testing.T) {
	client := new(MockClient)
	publisher := eventbridge.NewPublisher(client, "bus", zap.NewNop())

	require.NoError(t, publisher.Publish(context.Background(), nil))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
