package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novapay/rag-chat-backend/internal/analytics"
	"github.com/novapay/rag-chat-backend/internal/chat"
	"github.com/novapay/rag-chat-backend/internal/flow"
)

type fakeFlow struct {
	answer string
	err    error
}

func (f *fakeFlow) Run(ctx context.Context, message, sessionID string) (*flow.RunResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &flow.RunResult{Answer: f.answer, Sources: []flow.Source{}}, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(turn analytics.Turn) {}

func newChatApp(upstream *fakeFlow) *fiber.App {
	gateway := chat.NewGateway(upstream, nil, noopRecorder{}, "flow-1")
	handler := NewChatHandler(gateway)

	app := fiber.New()
	app.Post("/chat", handler.HandleChat)
	app.Get("/chat/history", handler.GetHistory)
	return app
}

func TestHandleChatSuccess(t *testing.T) {
	app := newChatApp(&fakeFlow{answer: "the fee is $25"})

	res, err := app.Test(jsonRequest("POST", "/chat", `{"message":"fees?","session_id":"sess-1"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body chat.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "the fee is $25", body.Answer)
	assert.Equal(t, "sess-1", body.SessionID)
	assert.NotEmpty(t, body.InteractionID)
}

func TestHandleChatEmptyMessage(t *testing.T) {
	app := newChatApp(&fakeFlow{answer: "unused"})

	res, err := app.Test(jsonRequest("POST", "/chat", `{"message":"   "}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "Message is required", body["error"])
}

func TestHandleChatMalformedBody(t *testing.T) {
	app := newChatApp(&fakeFlow{answer: "unused"})

	res, err := app.Test(jsonRequest("POST", "/chat", `{not json`))
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHandleChatUpstreamStatusPassthrough(t *testing.T) {
	app := newChatApp(&fakeFlow{err: &flow.UpstreamError{
		StatusCode: http.StatusNotFound,
		Message:    "flow not found",
	}})

	res, err := app.Test(jsonRequest("POST", "/chat", `{"message":"hello"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "flow not found", body["error"])
}

func TestGetHistoryRequiresSessionID(t *testing.T) {
	app := newChatApp(&fakeFlow{})

	res, err := app.Test(httptest.NewRequest("GET", "/chat/history", nil))
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetHistoryEmptyWithoutStore(t *testing.T) {
	app := newChatApp(&fakeFlow{})

	res, err := app.Test(httptest.NewRequest("GET", "/chat/history?session_id=sess-1", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		SessionID string        `json:"session_id"`
		History   []interface{} `json:"history"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "sess-1", body.SessionID)
	assert.Empty(t, body.History)
}
