package cookiejar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bnema/stayctl/internal/ports/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestJarSplitsPersistentAndSessionCookiesAcrossAreas(t *testing.T) {
	t.Parallel()

	durable, ephemeral := fakes.NewStore(), fakes.NewStore()
	jar, err := New(durable, ephemeral, nil)
	require.NoError(t, err)

	u := mustURL(t, "http://localhost:8080/api/auth/login")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "refresh_token", Value: "r1", Path: "/api/auth", MaxAge: 3600, HttpOnly: true},
		{Name: "csrf_token", Value: "c1", Path: "/"},
	})

	assert.Contains(t, durable.Snapshot()[storageKey], "refresh_token")
	assert.NotContains(t, durable.Snapshot()[storageKey], "csrf_token")
	assert.Contains(t, ephemeral.Snapshot()[storageKey], "csrf_token")
}

func TestJarLoadRestoresCookiesInNewProcess(t *testing.T) {
	t.Parallel()

	durable, ephemeral := fakes.NewStore(), fakes.NewStore()
	first, err := New(durable, ephemeral, nil)
	require.NoError(t, err)

	u := mustURL(t, "http://localhost:8080/api/auth/login")
	first.SetCookies(u, []*http.Cookie{
		{Name: "refresh_token", Value: "r1", Path: "/api/auth", MaxAge: 3600},
		{Name: "csrf_token", Value: "c1", Path: "/"},
	})

	second, err := New(durable, ephemeral, nil)
	require.NoError(t, err)
	require.NoError(t, second.Load(context.Background()))

	refresh, ok := second.Value(mustURL(t, "http://localhost:8080/api/auth/refresh"), "refresh_token")
	require.True(t, ok)
	assert.Equal(t, "r1", refresh)

	csrf, ok := second.Value(mustURL(t, "http://localhost:8080/api/products"), "csrf_token")
	require.True(t, ok)
	assert.Equal(t, "c1", csrf)

	_, ok = second.Value(mustURL(t, "http://localhost:8080/api/products"), "refresh_token")
	assert.False(t, ok)
}

func TestJarLoadSkipsExpiredCookies(t *testing.T) {
	t.Parallel()

	durable := fakes.NewStore()
	require.NoError(t, durable.Put(context.Background(), storageKey,
		`[{"url":"http://localhost/","host":"localhost","name":"refresh_token","value":"old","path":"/","expires":"2001-01-01T00:00:00Z"}]`))

	jar, err := New(durable, fakes.NewStore(), nil)
	require.NoError(t, err)
	require.NoError(t, jar.Load(context.Background()))

	_, ok := jar.Value(mustURL(t, "http://localhost/"), "refresh_token")
	assert.False(t, ok)
}

func TestJarDeletedCookieIsRemovedFromStorage(t *testing.T) {
	t.Parallel()

	durable, ephemeral := fakes.NewStore(), fakes.NewStore()
	jar, err := New(durable, ephemeral, nil)
	require.NoError(t, err)

	u := mustURL(t, "http://localhost/auth/refresh")
	jar.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/", MaxAge: 60}})
	require.Contains(t, durable.Snapshot(), storageKey)

	jar.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "", Path: "/", MaxAge: -1}})
	assert.NotContains(t, durable.Snapshot(), storageKey)
}

func TestJarClearWipesMemoryAndBothAreas(t *testing.T) {
	t.Parallel()

	durable, ephemeral := fakes.NewStore(), fakes.NewStore()
	jar, err := New(durable, ephemeral, nil)
	require.NoError(t, err)

	u := mustURL(t, "http://localhost/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "refresh_token", Value: "r1", Expires: time.Now().Add(time.Hour)},
		{Name: "csrf_token", Value: "c1"},
	})

	require.NoError(t, jar.Clear(context.Background()))
	assert.Empty(t, jar.Cookies(u))
	assert.Empty(t, durable.Snapshot())
	assert.Empty(t, ephemeral.Snapshot())
}

func TestJarLoadReportsUnavailableStorageButKeepsOtherArea(t *testing.T) {
	t.Parallel()

	durable, ephemeral := fakes.NewStore(), fakes.NewStore()
	require.NoError(t, ephemeral.Put(context.Background(), storageKey,
		`[{"url":"http://localhost/","host":"localhost","name":"csrf_token","value":"c1","path":"/"}]`))
	durable.SetUnavailable(true)

	jar, err := New(durable, ephemeral, nil)
	require.NoError(t, err)
	require.Error(t, jar.Load(context.Background()))

	value, ok := jar.Value(mustURL(t, "http://localhost/"), "csrf_token")
	require.True(t, ok)
	assert.Equal(t, "c1", value)
}

func TestJarWorksAsHTTPClientJar(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "abc", Path: "/", MaxAge: 60})
			return
		}
		cookie, err := r.Cookie("refresh_token")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(cookie.Value))
	}))
	defer server.Close()

	jar, err := New(fakes.NewStore(), fakes.NewStore(), nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(server.URL + "/set")
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = client.Get(server.URL + "/echo")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
