package hcaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSiteverify(t *testing.T, answer string) (*Verifier, *url.Values) {
	t.Helper()
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			got = r.PostForm
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(answer))
	}))
	t.Cleanup(srv.Close)
	return &Verifier{Secret: "0xSECRET", Endpoint: srv.URL, Client: srv.Client()}, &got
}

func TestVerifyAccepted(t *testing.T) {
	v, got := newSiteverify(t, `{"success":true,"hostname":"getyoursite.fr"}`)

	require.NoError(t, v.Verify(context.Background(), "tok", "203.0.113.7"))
	assert.Equal(t, "0xSECRET", got.Get("secret"))
	assert.Equal(t, "tok", got.Get("response"))
	assert.Equal(t, "203.0.113.7", got.Get("remoteip"))
}

func TestVerifyRejected(t *testing.T) {
	v, _ := newSiteverify(t, `{"success":false,"error-codes":["invalid-input-response"]}`)

	err := v.Verify(context.Background(), "tok", "")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "invalid-input-response")
}

func TestVerifyEmptyToken(t *testing.T) {
	v := &Verifier{Secret: "0xSECRET", Endpoint: "http://127.0.0.1:1"}
	assert.ErrorIs(t, v.Verify(context.Background(), "  ", ""), ErrEmptyToken)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("HCAPTCHA_SECRET", "")
	assert.Nil(t, FromEnv())

	t.Setenv("HCAPTCHA_SECRET", "0xSECRET")
	v := FromEnv()
	require.NotNil(t, v)
	assert.Equal(t, DefaultEndpoint, v.Endpoint)
}
