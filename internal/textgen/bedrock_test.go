package textgen

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockInvoker struct {
	invokeFn func(params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
}

func (m *mockInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	return m.invokeFn(params)
}

func TestComplete(t *testing.T) {
	t.Parallel()

	api := &mockInvoker{
		invokeFn: func(params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(params.ModelId))
			assert.Equal(t, "application/json", aws.ToString(params.ContentType))

			var req invokeRequest
			require.NoError(t, json.Unmarshal(params.Body, &req))
			assert.Equal(t, "hello", req.Prompt)
			assert.Equal(t, 500, req.MaxTokens)
			assert.Zero(t, req.Temperature)

			return &bedrockruntime.InvokeModelOutput{
				Body: []byte(`{"completion": " <SQL>SELECT 1</SQL>"}`),
			}, nil
		},
	}
	c := NewClient(api, "anthropic.claude-3-haiku-20240307-v1:0")

	got, err := c.Complete(context.Background(), "hello", 500, 0)

	require.NoError(t, err)
	assert.Equal(t, " <SQL>SELECT 1</SQL>", got, "completion returned untrimmed")
}

func TestComplete_InvokeError(t *testing.T) {
	t.Parallel()

	api := &mockInvoker{
		invokeFn: func(_ *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			return nil, assert.AnError
		},
	}
	c := NewClient(api, "model-x")

	_, err := c.Complete(context.Background(), "hello", 100, 0.3)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model-x")
}

func TestComplete_BadResponseBody(t *testing.T) {
	t.Parallel()

	api := &mockInvoker{
		invokeFn: func(_ *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
			return &bedrockruntime.InvokeModelOutput{Body: []byte("not json")}, nil
		},
	}
	c := NewClient(api, "model-x")

	_, err := c.Complete(context.Background(), "hello", 100, 0)

	require.Error(t, err)
}
