package upstream_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat/pkg/adapters/upstream"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submission() ports.Submission {
	return ports.Submission{
		FlowID:         "offer",
		ChannelID:      "c1",
		MemberID:       "m-1",
		Data:           map[string]any{"amount": 10.0, "currency": "USD"},
		Token:          "jwt-token",
		IdempotencyKey: "req-1",
	}
}

func TestClient_Submit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/flows/offer", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		assert.Equal(t, "req-1", r.Header.Get("Idempotency-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c1", body["channel_id"])
		assert.NotContains(t, body, "Token")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"action":{"type":"OFFER_CREATED"}}}`))
	}))
	defer srv.Close()

	c, err := upstream.New(srv.URL + "/v1/")
	require.NoError(t, err)

	resp, err := c.Submit(context.Background(), submission())
	require.NoError(t, err)
	data := resp.(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "OFFER_CREATED", data["action"].(map[string]any)["type"])
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	keys := make(chan string, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("Idempotency-Key")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c, err := upstream.New(srv.URL, upstream.WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	sub := submission()
	sub.IdempotencyKey = ""
	_, err = c.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())

	first := <-keys
	assert.NotEmpty(t, first)
	assert.Equal(t, first, <-keys)
	assert.Equal(t, first, <-keys)
}

func TestClient_ExhaustedBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := upstream.New(srv.URL, upstream.WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), submission())
	var sysErr *domain.SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, domain.CodeAPIRequest, sysErr.Code)
	assert.Equal(t, domain.ServiceAPI, sysErr.Service)
	assert.Equal(t, domain.ErrorTypeAPI, domain.Classify(err))
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad amount", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c, err := upstream.New(srv.URL, upstream.WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), submission())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad amount")
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_SuccessfulResponsesAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"array body", `[1,2]`, []any{1.0, 2.0}},
		{"string body", `"accepted"`, "accepted"},
		{"null body", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := upstream.New(srv.URL, upstream.WithRetry(3, time.Millisecond))
			require.NoError(t, err)

			resp, err := c.Submit(context.Background(), submission())
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp)
			assert.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestClient_UndecodableSuccessIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":`))
	}))
	defer srv.Close()

	c, err := upstream.New(srv.URL, upstream.WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), submission())
	var sysErr *domain.SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, domain.CodeAPIRequest, sysErr.Code)
	assert.Contains(t, err.Error(), "failed to decode response")
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, err := upstream.New(srv.URL, upstream.WithTimeout(20*time.Millisecond), upstream.WithRetry(1, 0))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), submission())
	var sysErr *domain.SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Equal(t, domain.CodeAPITimeout, sysErr.Code)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := upstream.New("ftp://ledger")
	assert.Error(t, err)
	_, err = upstream.New("://")
	assert.Error(t, err)
}
