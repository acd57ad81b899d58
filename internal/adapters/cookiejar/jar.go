// Package cookiejar carries the authority's cookies (refresh credential and
// anti-forgery token) across process runs. Cookies with an expiry go to the
// durable area, session cookies to the ephemeral one, mirroring how a browser
// keeps them.
package cookiejar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	stdjar "net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"golang.org/x/net/publicsuffix"
)

const (
	storageKey         = "cookies"
	persistTimeout     = 5 * time.Second
	maxPersistedCookie = 64
)

type record struct {
	URL      string    `json:"url"`
	Host     string    `json:"host"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (r record) key() string {
	return r.Host + "|" + r.Domain + "|" + r.Path + "|" + r.Name
}

func (r record) durable() bool {
	return !r.Expires.IsZero()
}

func (r record) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     r.Name,
		Value:    r.Value,
		Domain:   r.Domain,
		Path:     r.Path,
		Expires:  r.Expires,
		Secure:   r.Secure,
		HttpOnly: r.HttpOnly,
	}
}

type Jar struct {
	durable   ports.KeyValueStore
	ephemeral ports.KeyValueStore
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	inner   *stdjar.Jar
	records map[string]record
}

var (
	_ http.CookieJar      = (*Jar)(nil)
	_ ports.CredentialJar = (*Jar)(nil)
)

func New(durable, ephemeral ports.KeyValueStore, logger *slog.Logger) (*Jar, error) {
	inner, err := newInner()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Jar{
		durable:   durable,
		ephemeral: ephemeral,
		logger:    logger,
		now:       time.Now,
		inner:     inner,
		records:   map[string]record{},
	}, nil
}

func newInner() (*stdjar.Jar, error) {
	inner, err := stdjar.New(&stdjar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return inner, nil
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Value returns the named cookie that would be sent to u.
func (j *Jar) Value(u *url.URL, name string) (string, bool) {
	for _, cookie := range j.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}

	j.mu.Lock()
	j.inner.SetCookies(u, cookies)
	now := j.now()
	for _, cookie := range cookies {
		rec := toRecord(u, cookie, now)
		if cookie.MaxAge < 0 || (!rec.Expires.IsZero() && !rec.Expires.After(now)) {
			delete(j.records, rec.key())
			continue
		}
		j.records[rec.key()] = rec
	}
	durable, ephemeral := j.partitionLocked()
	j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := j.persist(ctx, durable, ephemeral); err != nil {
		j.logger.Warn("persist cookies", slog.String("error", err.Error()))
	}
}

// Load restores cookies saved by an earlier run. Unreadable entries are
// skipped.
func (j *Jar) Load(ctx context.Context) error {
	var errs []error
	loaded := make([]record, 0)
	for _, store := range []ports.KeyValueStore{j.durable, j.ephemeral} {
		if store == nil {
			continue
		}
		records, err := readRecords(ctx, store)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, records...)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, rec := range loaded {
		if rec.durable() && !rec.Expires.After(now) {
			continue
		}
		u, err := url.Parse(rec.URL)
		if err != nil || u.Host == "" {
			continue
		}
		j.inner.SetCookies(u, []*http.Cookie{rec.cookie()})
		j.records[rec.key()] = rec
	}

	return errors.Join(errs...)
}

// Clear drops every cookie from memory and from both areas.
func (j *Jar) Clear(ctx context.Context) error {
	inner, err := newInner()
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.inner = inner
	j.records = map[string]record{}
	j.mu.Unlock()

	var errs []error
	for _, store := range []ports.KeyValueStore{j.durable, j.ephemeral} {
		if store == nil {
			continue
		}
		if err := store.Delete(ctx, storageKey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *Jar) partitionLocked() ([]record, []record) {
	durable := make([]record, 0, len(j.records))
	ephemeral := make([]record, 0, len(j.records))
	for _, rec := range j.records {
		if rec.durable() {
			durable = append(durable, rec)
		} else {
			ephemeral = append(ephemeral, rec)
		}
	}
	sortRecords(durable)
	sortRecords(ephemeral)
	return durable, ephemeral
}

func (j *Jar) persist(ctx context.Context, durable, ephemeral []record) error {
	return errors.Join(
		writeRecords(ctx, j.durable, durable, domain.AreaDurable),
		writeRecords(ctx, j.ephemeral, ephemeral, domain.AreaEphemeral),
	)
}

func writeRecords(ctx context.Context, store ports.KeyValueStore, records []record, area domain.Area) error {
	if store == nil {
		return nil
	}
	if len(records) == 0 {
		if err := store.Delete(ctx, storageKey); err != nil {
			return fmt.Errorf("clear %s cookies: %w", area, err)
		}
		return nil
	}
	if len(records) > maxPersistedCookie {
		records = records[:maxPersistedCookie]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s cookies: %w", area, err)
	}
	if err := store.Put(ctx, storageKey, string(data)); err != nil {
		return fmt.Errorf("write %s cookies: %w", area, err)
	}
	return nil
}

func readRecords(ctx context.Context, store ports.KeyValueStore) ([]record, error) {
	raw, err := store.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}
	return records, nil
}

func toRecord(u *url.URL, cookie *http.Cookie, now time.Time) record {
	rec := record{
		URL:      (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String(),
		Host:     u.Hostname(),
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		Secure:   cookie.Secure,
		HttpOnly: cookie.HttpOnly,
	}
	if rec.Path == "" {
		rec.Path = defaultPath(u.Path)
	}

	switch {
	case cookie.MaxAge > 0:
		rec.Expires = now.Add(time.Duration(cookie.MaxAge) * time.Second).UTC()
	case !cookie.Expires.IsZero():
		rec.Expires = cookie.Expires.UTC()
	}
	return rec
}

// defaultPath follows RFC 6265 section 5.1.4.
func defaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := len(path) - 1
	for i > 0 && path[i] != '/' {
		i--
	}
	if i == 0 {
		return "/"
	}
	return path[:i]
}

func sortRecords(records []record) {
	sort.Slice(records, func(a, b int) bool {
		return records[a].key() < records[b].key()
	})
}
