package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyexpiry/internal/adapters/notify"
)

func TestConsole_Send(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	require.NoError(t, c.Send(context.Background(), "line one\nline two"))
	assert.Equal(t, "line one\nline two\n", buf.String())
	assert.Equal(t, "console", c.Name())
}

func TestLog_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	l := notify.NewLog(logger)
	require.NoError(t, l.Send(context.Background(), "a\nb"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "alert", entry["msg"])
	assert.Equal(t, "a\nb", entry["text"])
	assert.InDelta(t, 2, entry["lines"], 0)
}

func TestWebhook_DiscordPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh, err := notify.NewWebhook(srv.URL, notify.WebhookDiscord, time.Second)
	require.NoError(t, err)
	require.NoError(t, wh.Send(context.Background(), "hello"))
	assert.Equal(t, map[string]string{"content": "hello"}, got)
}

func TestWebhook_DiscordTruncatesLongMessages(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	wh, err := notify.NewWebhook(srv.URL, "", time.Second)
	require.NoError(t, err)
	require.NoError(t, wh.Send(context.Background(), strings.Repeat("é", 2500)))
	assert.Equal(t, 2000, len([]rune(got["content"])))
	assert.True(t, strings.HasSuffix(got["content"], "..."))
}

func TestWebhook_SlackPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	wh, err := notify.NewWebhook(srv.URL, notify.WebhookSlack, time.Second)
	require.NoError(t, err)
	require.NoError(t, wh.Send(context.Background(), "hello"))
	assert.Equal(t, map[string]string{"text": "hello"}, got)
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Cannot send an empty message"}`))
	}))
	defer srv.Close()

	wh, err := notify.NewWebhook(srv.URL, notify.WebhookDiscord, time.Second)
	require.NoError(t, err)

	err = wh.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Cannot send an empty message")
}

func TestNewWebhook_Validation(t *testing.T) {
	_, err := notify.NewWebhook("", notify.WebhookDiscord, 0)
	assert.Error(t, err)

	_, err = notify.NewWebhook("http://example.test", "telegram", 0)
	assert.Error(t, err)
}

type stubSender struct {
	name string
	err  error
	got  []string
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(_ context.Context, text string) error {
	s.got = append(s.got, text)
	return s.err
}

func TestMulti_DeliversToAllEvenIfOneFails(t *testing.T) {
	a := &stubSender{name: "a"}
	b := &stubSender{name: "b", err: errors.New("boom")}
	c := &stubSender{name: "c"}

	err := notify.NewMulti(a, b, c).Send(context.Background(), "alert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: boom")

	assert.Equal(t, []string{"alert"}, a.got)
	assert.Equal(t, []string{"alert"}, b.got)
	assert.Equal(t, []string{"alert"}, c.got)
}

func TestMulti_NoSenders(t *testing.T) {
	assert.NoError(t, notify.NewMulti().Send(context.Background(), "alert"))
}
