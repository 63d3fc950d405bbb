package suggest

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AA-Fatima/599-cal/pkg/anthropic"
)

type fakeClient struct {
	resp  *anthropic.MessageResponse
	err   error
	calls int
}

func (f *fakeClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	return f.resp, f.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestSuggestIngredients(t *testing.T) {
	client := &fakeClient{resp: textResponse("Chicken breast\n- Tortilla\n2. Bell pepper\n\n")}
	s := NewClaude(client, Options{})

	got, err := s.SuggestIngredients(context.Background(), "fajita")
	require.NoError(t, err)
	assert.Equal(t, []string{"chicken breast", "tortilla", "bell pepper"}, got)
	assert.Equal(t, 1, client.calls)
}

func TestSuggestIngredientsError(t *testing.T) {
	client := &fakeClient{err: eris.New("overloaded")}
	s := NewClaude(client, Options{})

	_, err := s.SuggestIngredients(context.Background(), "fajita")
	assert.Error(t, err)
}

func TestSuggestIngredientsRateLimited(t *testing.T) {
	client := &fakeClient{resp: textResponse("rice")}
	s := NewClaude(client, Options{RequestsPerMinute: 1})
	ctx := context.Background()

	got, err := s.SuggestIngredients(ctx, "biryani")
	require.NoError(t, err)
	assert.Equal(t, []string{"rice"}, got)

	got, err = s.SuggestIngredients(ctx, "kabsa")
	require.NoError(t, err)
	assert.Nil(t, got, "second request inside the window is dropped")
	assert.Equal(t, 1, client.calls)
}

func TestDisabled(t *testing.T) {
	got, err := Disabled{}.SuggestIngredients(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, got)
}
