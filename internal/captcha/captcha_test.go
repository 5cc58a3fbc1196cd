package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		ok := r.PostForm.Get("response") == "good"
		if ok {
			assert.Equal(t, "10.0.0.1", r.PostForm.Get("remoteip"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":     ok,
			"error-codes": []string{"invalid-input-response"},
		})
	}))
	defer srv.Close()

	v := NewSiteVerify("shh", srv.URL)
	ctx := context.Background()

	assert.NoError(t, v.Verify(ctx, "good", "10.0.0.1"))
	assert.ErrorIs(t, v.Verify(ctx, "bad", ""), ErrFailed)
	assert.ErrorIs(t, v.Verify(ctx, "  ", ""), ErrFailed)
}

func TestSiteVerifyUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewSiteVerify("shh", srv.URL).Verify(context.Background(), "good", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFailed)
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Static{Answer: "42"}.Verify(ctx, "42", ""))
	assert.ErrorIs(t, Static{Answer: "42"}.Verify(ctx, "41", ""), ErrFailed)
	assert.NoError(t, Static{}.Verify(ctx, "anything", ""))
	assert.ErrorIs(t, Static{}.Verify(ctx, "", ""), ErrFailed)
}
