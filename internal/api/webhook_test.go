package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeys/reeys-backend/internal/models"
	"github.com/reeys/reeys-backend/internal/service"
)

func (e *testEnv) postWebhook(t *testing.T, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/superwall", bytes.NewReader([]byte(body)))
	if secret != "" {
		req.Header.Set("X-Superwall-Secret", secret)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, "wrong", `{"type":"renewal","data":{"originalAppUserId":"user-1"}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, env.store.Get("user-1"))
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, "", `{"type":"renewal","data":{"originalAppUserId":"user-1"}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsEmptyBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsMissingUserID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret, `{"type":"renewal","data":{"productId":"reeys.weekly"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "No user ID"))
}

func TestWebhookRenewalActivatesSubscription(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret,
		`{"type":"renewal","data":{"originalAppUserId":"user-1","productId":"reeys.weekly"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	account := env.store.Get("user-1")
	require.NotNil(t, account)
	assert.Equal(t, models.SubscriptionActive, account.SubscriptionStatus)
	assert.Equal(t, service.WeeklyTokenGrant, account.Balance)
}

func TestWebhookStripsAliasPrefix(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret,
		`{"type":"subscription_start","data":{"originalAppUserId":"$SuperwallAlias:user-1","productId":"reeys.weekly"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.store.Get("user-1"))
	assert.Nil(t, env.store.Get("$SuperwallAlias:user-1"))
}

func TestWebhookTokenPackPurchase(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret,
		`{"type":"consumable_purchase","data":{"originalAppUserId":"user-1","productId":"reeys.tokens.2000"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000, env.store.Get("user-1").Balance)
}

func TestWebhookUnknownEventAcknowledgedWithoutMutation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postWebhook(t, testWebhookSecret,
		`{"type":"mystery_event","data":{"originalAppUserId":"user-1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.store.Get("user-1"))
	assert.Empty(t, env.store.Txns)
}

func TestWebhookCancellationPreservesBalance(t *testing.T) {
	env := newTestEnv(t)

	first := env.postWebhook(t, testWebhookSecret,
		`{"type":"subscription_start","data":{"originalAppUserId":"user-1","productId":"reeys.weekly"}}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := env.postWebhook(t, testWebhookSecret,
		`{"type":"cancellation","data":{"originalAppUserId":"user-1"}}`)
	require.Equal(t, http.StatusOK, second.Code)

	account := env.store.Get("user-1")
	assert.Equal(t, models.SubscriptionCanceled, account.SubscriptionStatus)
	assert.Equal(t, service.WeeklyTokenGrant, account.Balance)
}
