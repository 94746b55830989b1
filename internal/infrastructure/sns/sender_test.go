package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-signup-nosql/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

func TestPublishUserRegistered(t *testing.T) {
	f := &fakeSNS{}
	p := &publisher{client: f, topicARN: "arn:aws:sns:us-east-1:000000000000:users"}
	ev := UserRegistered{UserID: "u1", Email: "a@b.com", Username: "newuser1", RegisteredAt: time.Unix(0, 0).UTC()}

	require.NoError(t, p.PublishUserRegistered(context.Background(), ev))

	require.NotNil(t, f.input)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:users", aws.ToString(f.input.TopicArn))
	assert.Equal(t, EventUserRegistered, aws.ToString(f.input.MessageAttributes["event"].StringValue))
	var got UserRegistered
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(f.input.Message)), &got))
	assert.Equal(t, ev, got)
}

func TestPublishUserRegistered_Error(t *testing.T) {
	p := &publisher{client: &fakeSNS{err: errors.New("throttled")}, topicARN: "arn"}
	err := p.PublishUserRegistered(context.Background(), UserRegistered{})
	assert.ErrorContains(t, err, "throttled")
}

func TestNewPublisher_RequiresTopic(t *testing.T) {
	_, err := NewPublisher(context.Background(), &config.Config{})
	assert.Error(t, err)
}
