package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffcs/devpulse/internal/apperr"
)

// pagedServer serves n integer items in pages selected by start/limit and
// counts requests. failAt, when non-zero, makes that request number fail
// with status.
func pagedServer(t *testing.T, n int, failAt int32, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := atomic.AddInt32(&calls, 1)
		if failAt != 0 && call == failAt {
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "30")
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
			return
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		var e jx.Encoder
		e.ObjStart()
		e.FieldStart("results")
		e.ArrStart()
		for i := start; i < start+limit && i < n; i++ {
			e.Int(i)
		}
		e.ArrEnd()
		e.FieldStart("isLast")
		e.Bool(start+limit >= n)
		e.ObjEnd()
		_, _ = w.Write(e.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func pageFunc(c *Client, size int) PageFunc[int] {
	return func(ctx context.Context, cursor int) (Page[int], error) {
		q := url.Values{}
		q.Set("start", strconv.Itoa(cursor))
		q.Set("limit", strconv.Itoa(size))
		var page Page[int]
		last := false
		err := c.GetJSON(ctx, "search", q, func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "results":
					return d.Arr(func(d *jx.Decoder) error {
						v, err := d.Int()
						page.Items = append(page.Items, v)
						return err
					})
				case "isLast":
					v, err := d.Bool()
					last = v
					return err
				default:
					return d.Skip()
				}
			})
		})
		page.More = !last
		page.Next = cursor + len(page.Items)
		return page, err
	}
}

func newTestClient(t *testing.T, baseURL string, auth Auth, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{Integration: "confluence", BaseURL: baseURL, Auth: auth, Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestAllPagination(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		pageSize  int
		limit     int
		wantItems int
		wantCalls int32
	}{
		{"exact pages", 6, 3, 200, 6, 2},
		{"partial last page", 7, 3, 200, 7, 3},
		{"cap stops early", 7, 3, 5, 5, 2},
		{"cap equals page", 10, 5, 5, 5, 1},
		{"empty", 0, 3, 200, 0, 1},
		{"default cap", 250, 50, 0, 200, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := pagedServer(t, tt.n, 0, 0)
			c := newTestClient(t, srv.URL, nil, 0)

			items, err := All(context.Background(), tt.limit, 0, pageFunc(c, tt.pageSize))
			require.NoError(t, err)
			assert.Len(t, items, tt.wantItems)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			for i, v := range items {
				assert.Equal(t, i, v, "items must keep server order")
			}
		})
	}
}

func TestAllDiscardsPartialResultsOnError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind apperr.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, apperr.KindRateLimited},
		{"unauthorized", http.StatusUnauthorized, apperr.KindAuthentication},
		{"forbidden", http.StatusForbidden, apperr.KindAuthentication},
		{"bad request", http.StatusBadRequest, apperr.KindRejected},
		{"server error", http.StatusBadGateway, apperr.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := pagedServer(t, 10, 2, tt.status)
			c := newTestClient(t, srv.URL, nil, 0)

			items, err := All(context.Background(), 200, 0, pageFunc(c, 3))
			require.Error(t, err)
			assert.Nil(t, items)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Equal(t, int32(2), atomic.LoadInt32(calls), "no pages after the failure")
		})
	}
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	srv, _ := pagedServer(t, 10, 1, http.StatusTooManyRequests)
	c := newTestClient(t, srv.URL, nil, 0)

	_, err := All(context.Background(), 200, 0, pageFunc(c, 3))
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	d, ok := ae.RetryAfter()
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)
}

func TestRejectedKeepsBodyExcerpt(t *testing.T) {
	srv, _ := pagedServer(t, 10, 1, http.StatusBadRequest)
	c := newTestClient(t, srv.URL, nil, 0)

	_, err := All(context.Background(), 200, 0, pageFunc(c, 3))
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, `{"message":"nope"}`, ae.Body)
}

func TestTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil, 50*time.Millisecond)

	err := c.GetJSON(context.Background(), "slow", nil, func(d *jx.Decoder) error { return d.Skip() })
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestCancellationIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := c.GetJSON(ctx, "hang", nil, func(d *jx.Decoder) error { return d.Skip() })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [1, 2`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil, 0)

	_, err := All(context.Background(), 200, 0, pageFunc(c, 3))
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestAuthApplied(t *testing.T) {
	tests := []struct {
		name string
		auth Auth
		want string
	}{
		{"bearer", Bearer("tok-123"), "Bearer tok-123"},
		{"basic", Basic("me@example.com", "secret"), "Basic bWVAZXhhbXBsZS5jb206c2VjcmV0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				_, _ = w.Write([]byte(`{}`))
			}))
			defer srv.Close()
			c := newTestClient(t, srv.URL, tt.auth, 0)

			require.NoError(t, c.GetJSON(context.Background(), "x", nil, func(d *jx.Decoder) error { return d.Skip() }))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseURLPathIsKept(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL+"/wiki/rest/api", nil, 0)

	require.NoError(t, c.GetJSON(context.Background(), "/content/42/child/comment", nil, func(d *jx.Decoder) error { return d.Skip() }))
	assert.Equal(t, "/wiki/rest/api/content/42/child/comment", path)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{Integration: "jira"})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))

	_, err = NewClient(ClientConfig{Integration: "jira", BaseURL: "not a url"})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
	}{
		{"seconds", http.Header{"Retry-After": {"120"}}, 2 * time.Minute},
		{"http date", http.Header{"Retry-After": {now.Add(90 * time.Second).Format(http.TimeFormat)}}, 90 * time.Second},
		{"reset header", http.Header{"X-Ratelimit-Reset": {fmt.Sprint(now.Add(time.Minute).Unix())}}, time.Minute},
		{"garbage", http.Header{"Retry-After": {"soon"}}, -1},
		{"missing", http.Header{}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryAfter(tt.header, now))
		})
	}
}

func TestGitHubQuotaForbiddenIsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil, 0)

	err := c.GetJSON(context.Background(), "search/issues", nil, func(d *jx.Decoder) error { return d.Skip() })
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

func TestSafeURL(t *testing.T) {
	u, _ := url.Parse("https://user:pw@example.com/rest/api/search?access_token=abc&jql=x")
	got := safeURL(u)
	assert.NotContains(t, got, "pw")
	assert.NotContains(t, got, "abc")
	assert.Contains(t, got, "jql=x")
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, 100, PageSize(200, 100))
	assert.Equal(t, 30, PageSize(30, 100))
	assert.Equal(t, 50, PageSize(0, 50))
}
