package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/petermazzocco/bboard/internal/auth"
	"github.com/petermazzocco/bboard/internal/board"
	"github.com/petermazzocco/bboard/internal/captcha"
	"github.com/petermazzocco/bboard/internal/handlers"
	"github.com/petermazzocco/bboard/internal/media"
	"github.com/petermazzocco/bboard/internal/notify"
	"github.com/petermazzocco/bboard/internal/signing"
	"github.com/petermazzocco/bboard/internal/store"
	"github.com/petermazzocco/bboard/internal/store/storetest"
	"github.com/petermazzocco/bboard/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type env struct {
	srv    *httptest.Server
	store  *store.Store
	media  *media.Memory
	mail   *notify.Recorder
	rubric *models.Rubric
}

func newEnv(t *testing.T, rateLimit int) *env {
	t.Helper()
	mem := media.NewMemory()
	e := setupEnv(t, rateLimit, mem, "")
	e.media = mem
	return e
}

// setupEnv serves the board over storage; a non-empty mediaRoot also mounts
// the local file server under /media/.
func setupEnv(t *testing.T, rateLimit int, storage media.Storage, mediaRoot string) *env {
	t.Helper()
	st := storetest.New(t)
	mail := &notify.Recorder{}
	signer := signing.New("test-secret", 0)
	svc := &board.Service{
		Store:             st,
		Media:             storage,
		Notifier:          &notify.Dispatcher{Mailer: mail, Signer: signer, BaseURL: "http://bboard.test"},
		Captcha:           captcha.Static{Answer: "42"},
		Signer:            signer,
		Log:               zerolog.Nop(),
		RequireActivation: true,
	}
	h := &handlers.Handler{
		Board: svc,
		Sessions: &auth.Sessions{
			Store: auth.NewCookieStore("0123456789abcdef0123456789abcdef", 3600, false),
			Users: st,
		},
		Log:       zerolog.Nop(),
		RateLimit: rateLimit,
		MediaRoot: mediaRoot,
		MediaURL:  "/media/",
	}
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	parent := storetest.Rubric(t, st, "Vehicles", 0, nil)
	return &env{srv: srv, store: st, mail: mail, rubric: storetest.Rubric(t, st, "Bikes", 0, parent)}
}

func (e *env) client(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func (e *env) user(t *testing.T, username, password string) *models.User {
	t.Helper()
	u := storetest.User(t, e.store, username, false)
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u.PasswordHash = hash
	require.NoError(t, e.store.SaveUser(context.Background(), u))
	return u
}

type response struct {
	status int
	body   map[string]any
}

func do(t *testing.T, c *http.Client, req *http.Request) response {
	t.Helper()
	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	out := response{status: res.StatusCode, body: map[string]any{}}
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (e *env) get(t *testing.T, c *http.Client, path string) response {
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	return do(t, c, req)
}

func (e *env) post(t *testing.T, c *http.Client, path string, values url.Values) response {
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, c, req)
}

type upload struct {
	field, name string
	data        []byte
}

func (e *env) postMultipart(t *testing.T, c *http.Client, path string, values url.Values, files map[string][]string) response {
	var uploads []upload
	for field, names := range files {
		for _, name := range names {
			uploads = append(uploads, upload{field: field, name: name, data: png})
		}
	}
	return e.postUploads(t, c, path, values, uploads...)
}

func (e *env) postUploads(t *testing.T, c *http.Client, path string, values url.Values, uploads ...upload) response {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, u := range uploads {
		fw, err := mw.CreateFormFile(u.field, u.name)
		require.NoError(t, err)
		_, err = fw.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(t, c, req)
}

func (e *env) login(t *testing.T, c *http.Client, username, password string) {
	t.Helper()
	res := e.post(t, c, "/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusOK, res.status, res.body)
}

func TestBrowseRoutes(t *testing.T) {
	e := newEnv(t, 0)
	c := e.client(t)
	alice := storetest.User(t, e.store, "alice", false)
	for i := 0; i < 3; i++ {
		storetest.Listing(t, e.store, alice, e.rubric, fmt.Sprintf("bike %d", i), "x", true)
	}

	res := e.get(t, c, "/?keyword=BIKE&page=x")
	require.Equal(t, http.StatusOK, res.status)
	page := res.body["page"].(map[string]any)
	assert.EqualValues(t, 3, page["count"])
	assert.EqualValues(t, 1, page["number"])
	assert.Equal(t, map[string]any{"keyword": "BIKE"}, res.body["form"])

	res = e.get(t, c, fmt.Sprintf("/category/%d?page=2", e.rubric.ID))
	require.Equal(t, http.StatusOK, res.status)
	page = res.body["page"].(map[string]any)
	assert.EqualValues(t, 2, page["num_pages"])
	assert.Len(t, page["items"], 1)

	res = e.get(t, c, fmt.Sprintf("/category/%d", *e.rubric.SuperRubricID))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "not found", res.body["error"])
	assert.Equal(t, http.StatusNotFound, e.get(t, c, "/category/bikes").status)

	res = e.get(t, c, "/rubrics")
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["super_rubrics"], 1)
	assert.Len(t, res.body["sub_rubrics"], 1)
}

func TestGuestComment(t *testing.T) {
	e := newEnv(t, 0)
	c := e.client(t)
	alice := storetest.User(t, e.store, "alice", true)
	l := storetest.Listing(t, e.store, alice, e.rubric, "Bike", "x", true)
	path := fmt.Sprintf("/category/%d/%d", e.rubric.ID, l.ID)

	res := e.get(t, c, path)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "guest", res.body["form"].(map[string]any)["kind"])

	res = e.post(t, c, path, url.Values{"author": {"guest"}, "content": {"hi"}, "captcha": {"7"}})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Equal(t, "warning", res.body["level"])
	assert.Equal(t, "Comment not added", res.body["message"])
	assert.Contains(t, res.body["errors"], "captcha")
	assert.Equal(t, "guest", res.body["form"].(map[string]any)["author"])
	assert.Empty(t, e.mail.Sent())

	res = e.post(t, c, path, url.Values{"author": {"guest"}, "content": {"hi"}, "captcha": {"42"}})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	assert.Equal(t, "success", res.body["level"])
	assert.Len(t, e.mail.Sent(), 1)

	res = e.get(t, c, path)
	assert.Len(t, res.body["comments"], 1)
}

func TestAccountFlow(t *testing.T) {
	e := newEnv(t, 0)
	c := e.client(t)

	res := e.post(t, c, "/accounts/register", url.Values{
		"username": {"carol"}, "email": {"carol@example.com"},
		"password1": {"correct horse"}, "password2": {"correct horse"},
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)

	res = e.post(t, c, "/login", url.Values{"username": {"carol"}, "password": {"correct horse"}})
	assert.Equal(t, http.StatusUnauthorized, res.status, "not activated yet")

	sent := e.mail.Sent()
	require.Len(t, sent, 1)
	_, link, ok := strings.Cut(sent[0].Body, "http://bboard.test")
	require.True(t, ok)
	link = strings.Fields(link)[0]

	assert.Equal(t, http.StatusBadRequest, e.get(t, c, link+"x").status)
	res = e.get(t, c, link)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "activated", res.body["result"])
	res = e.get(t, c, link)
	assert.Equal(t, "already_activated", res.body["result"])

	e.login(t, c, "carol", "correct horse")
	res = e.get(t, c, "/login")
	assert.Equal(t, "carol", res.body["user"].(map[string]any)["username"])
	assert.NotContains(t, res.body["user"], "password_hash")

	res = e.post(t, c, "/accounts/password/change", url.Values{
		"old_password": {"correct horse"}, "new_password1": {"battery staple"}, "new_password2": {"battery staple"},
	})
	require.Equal(t, http.StatusOK, res.status, res.body)

	assert.Equal(t, http.StatusOK, e.post(t, c, "/logout", nil).status)
	assert.Equal(t, http.StatusUnauthorized, e.get(t, c, "/accounts/profile").status)
	e.login(t, c, "carol", "battery staple")
}

func TestProfileListingCRUD(t *testing.T) {
	e := newEnv(t, 0)
	alice := e.user(t, "alice", "alice-password")
	e.user(t, "mallory", "mallory-password")
	ac, mc := e.client(t), e.client(t)
	e.login(t, ac, "alice", "alice-password")
	e.login(t, mc, "mallory", "mallory-password")

	values := url.Values{
		"rubric": {fmt.Sprint(e.rubric.ID)}, "title": {"Bike"}, "content": {"red"}, "contacts": {"555"},
	}
	res := e.postMultipart(t, ac, "/accounts/profile/add", values, map[string][]string{
		"image":             {"main.png"},
		"additional_images": {"a.png", "b.png"},
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	listing := res.body["listing"].(map[string]any)
	id := uint(listing["id"].(float64))
	assert.True(t, strings.HasPrefix(listing["image_url"].(string), "/media/"))
	assert.Len(t, e.media.Keys(), 3)

	delete(values, "title")
	res = e.postMultipart(t, ac, "/accounts/profile/add", values, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body["errors"], "title")
	values.Set("title", "Bike")

	path := fmt.Sprintf("/accounts/profile/%d", id)
	assert.Equal(t, http.StatusNotFound, e.get(t, mc, path).status)
	values.Set("title", "Stolen")
	assert.Equal(t, http.StatusNotFound, e.postMultipart(t, mc, fmt.Sprintf("/accounts/profile/change/%d", id), values, nil).status)
	assert.Equal(t, http.StatusNotFound, e.post(t, mc, fmt.Sprintf("/accounts/profile/delete/%d", id), nil).status)

	res = e.get(t, ac, path)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Bike", res.body["listing"].(map[string]any)["title"])
	assert.Len(t, res.body["additional_images"], 2)

	values.Set("title", "Better bike")
	res = e.postMultipart(t, ac, fmt.Sprintf("/accounts/profile/change/%d", id), values, nil)
	require.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "Better bike", res.body["listing"].(map[string]any)["title"])

	res = e.get(t, ac, "/accounts/profile")
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["listings"], 1)

	assert.Equal(t, http.StatusOK, e.post(t, ac, fmt.Sprintf("/accounts/profile/delete/%d", id), nil).status)
	assert.Empty(t, e.media.Keys())
	listings, err := e.store.ListingsByAuthor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestDeleteAccount(t *testing.T) {
	e := newEnv(t, 0)
	alice := e.user(t, "alice", "alice-password")
	c := e.client(t)
	e.login(t, c, "alice", "alice-password")
	res := e.postMultipart(t, c, "/accounts/profile/add", url.Values{
		"rubric": {fmt.Sprint(e.rubric.ID)}, "title": {"Bike"}, "content": {"red"}, "contacts": {"555"},
	}, map[string][]string{"image": {"main.png"}, "additional_images": {"a.png"}})
	require.Equal(t, http.StatusCreated, res.status, res.body)

	assert.Equal(t, http.StatusOK, e.post(t, c, "/accounts/delete", nil).status)
	assert.Empty(t, e.media.Keys())
	_, err := e.store.User(context.Background(), alice.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, http.StatusUnauthorized, e.get(t, c, "/accounts/profile").status)
}

func TestAnonymousIsRejected(t *testing.T) {
	e := newEnv(t, 0)
	c := e.client(t)
	for _, path := range []string{"/accounts/profile", "/accounts/profile/add", "/accounts/password/change", "/accounts/delete"} {
		res := e.get(t, c, path)
		assert.Equal(t, http.StatusUnauthorized, res.status, path)
	}
	assert.Equal(t, http.StatusUnauthorized, e.post(t, c, "/logout", nil).status)
}

func TestLoginIsRateLimited(t *testing.T) {
	e := newEnv(t, 2)
	c := e.client(t)
	creds := url.Values{"username": {"nobody"}, "password": {"x"}}
	assert.Equal(t, http.StatusUnauthorized, e.post(t, c, "/login", creds).status)
	assert.Equal(t, http.StatusUnauthorized, e.post(t, c, "/login", creds).status)
	assert.Equal(t, http.StatusTooManyRequests, e.post(t, c, "/login", creds).status)
	assert.Equal(t, http.StatusOK, e.get(t, c, "/login").status, "reads are not limited")
}

func TestLocalMediaServedAsImage(t *testing.T) {
	root := t.TempDir()
	e := setupEnv(t, 0, &media.Local{Root: root, BaseURL: "/media/"}, root)
	e.user(t, "alice", "alice-password")
	c := e.client(t)
	e.login(t, c, "alice", "alice-password")

	values := url.Values{
		"rubric": {fmt.Sprint(e.rubric.ID)}, "title": {"Bike"}, "content": {"red"}, "contacts": {"555"},
	}
	res := e.postUploads(t, c, "/accounts/profile/add", values, upload{
		field: "image",
		name:  "evil.html",
		data:  []byte("GIF89a<script>alert(document.cookie)</script>"),
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	imageURL := res.body["listing"].(map[string]any)["image_url"].(string)
	assert.True(t, strings.HasSuffix(imageURL, ".gif"), imageURL)

	got, err := e.client(t).Get(e.srv.URL + imageURL)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "image/gif", got.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", got.Header.Get("X-Content-Type-Options"))
}
