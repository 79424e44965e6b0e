package confluence

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/window"
)

func testWindow(t *testing.T) window.Window {
	t.Helper()
	w, err := window.Parse("2025-11-01", "2025-11-15")
	require.NoError(t, err)
	return w
}

func TestCQL(t *testing.T) {
	w := testWindow(t)

	got, err := CreatedCQL("alice@example.com", w, "")
	require.NoError(t, err)
	assert.Equal(t, `creator = "alice@example.com" AND created >= "2025-11-01" AND created < "2025-11-16" AND type = page`, got)

	got, err = CreatedCQL(`al"ice`, w, "ENG")
	require.NoError(t, err)
	assert.Equal(t, `creator = "al\"ice" AND created >= "2025-11-01" AND created < "2025-11-16" AND type = page AND space = "ENG"`, got)

	got, err = ModifiedCQL(w, "OPS")
	require.NoError(t, err)
	assert.Equal(t, `lastModified >= "2025-11-01" AND lastModified < "2025-11-16" AND type = page AND space = "OPS"`, got)

	_, err = CreatedCQL("", w, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = ModifiedCQL(window.Window{From: w.To, To: w.From}, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDecodeContent(t *testing.T) {
	input := `{
		"id": "101",
		"title": "Runbook",
		"space": {"key": "ENG", "name": "Engineering"},
		"version": {"number": 3, "when": "2025-11-04T09:30:00.000Z", "by": {"accountId": "acc-2"}},
		"history": {
			"createdDate": "2025-11-02T08:00:00.000Z",
			"createdBy": {"accountId": "acc-1", "email": "alice@example.com"},
			"lastUpdated": {"when": "2025-11-04T09:30:00.000Z", "by": {"accountId": "acc-2"}}
		}
	}`
	c, err := decodeContent(jx.DecodeStr(input))
	require.NoError(t, err)

	created, ok := createdRevision(c)
	require.True(t, ok)
	assert.Equal(t, "101", created.ID)
	assert.Equal(t, "acc-1", created.Creator)
	assert.True(t, created.IsInitialVersion)
	assert.Equal(t, time.Date(2025, 11, 2, 8, 0, 0, 0, time.UTC), created.CreatedAt)
	assert.Equal(t, "Engineering", created.SpaceName)

	updated, ok := updatedRevision(c)
	require.True(t, ok)
	assert.Equal(t, "acc-2", updated.Creator)
	assert.False(t, updated.IsInitialVersion)
	assert.Equal(t, time.Date(2025, 11, 4, 9, 30, 0, 0, time.UTC), updated.CreatedAt)

	assert.True(t, c.CreatedBy.is("ALICE@example.com"))
	assert.True(t, c.CreatedBy.is("acc-1"))
	assert.False(t, c.CreatedBy.is(""))
}

func TestDecodeContentTolerance(t *testing.T) {
	c, err := decodeContent(jx.DecodeStr(`{"id": 55, "space": "ENG", "version": {"number": "one", "by": null}, "history": []}`))
	require.NoError(t, err)
	assert.Equal(t, "55", c.ID)
	assert.Empty(t, c.SpaceKey)
	assert.Zero(t, c.VersionNumber)

	p, err := decodeResults(jx.DecodeStr(`{"results": [{"title": "no id"}, {"id": "1"}], "_links": {"next": "/rest/api/content/search?cursor=x"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Returned)
	assert.Len(t, p.Items, 1)
	assert.True(t, p.HasNext)
}

type fakeWiki struct {
	t        *testing.T
	searches atomic.Int32
	failPage string
}

func page(id, space, created, createdBy string, version int, updated, updatedBy string) string {
	return fmt.Sprintf(`{"id":%q,"title":"Page %s","space":{"key":%q,"name":"Space %s"},`+
		`"version":{"number":%d,"when":%q,"by":{"accountId":%q}},`+
		`"history":{"createdDate":%q,"createdBy":{"accountId":%q},"lastUpdated":{"when":%q,"by":{"accountId":%q}}}}`,
		id, id, space, space, version, updated, updatedBy, created, createdBy, updated, updatedBy)
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/wiki/rest/api/")
	switch {
	case path == "content/search":
		f.searches.Add(1)
		cql := r.URL.Query().Get("cql")
		var results []string
		if strings.HasPrefix(cql, "creator") {
			results = []string{
				page("1", "ENG", "2025-11-02T08:00:00.000Z", "acc-1", 1, "2025-11-02T08:00:00.000Z", "acc-1"),
			}
		} else {
			results = []string{
				page("1", "ENG", "2025-11-02T08:00:00.000Z", "acc-1", 1, "2025-11-02T08:00:00.000Z", "acc-1"),
				page("2", "ENG", "2025-10-01T08:00:00.000Z", "acc-9", 4, "2025-11-06T08:00:00.000Z", "acc-1"),
				page("3", "OPS", "2025-10-01T08:00:00.000Z", "acc-9", 2, "2025-11-07T08:00:00.000Z", "acc-9"),
			}
		}
		fmt.Fprintf(w, `{"results":[%s],"size":%d}`, strings.Join(results, ","), len(results))
	case strings.HasPrefix(path, "content/") && strings.HasSuffix(path, "/child/comment"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "content/"), "/child/comment")
		if id == f.failPage {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(f.t, "version", r.URL.Query().Get("expand"))
		fmt.Fprintf(w, `{"results":[
			{"id":"c%[1]s-1","version":{"when":"2025-11-08T10:00:00.000Z","by":{"accountId":"acc-1"}}},
			{"id":"c%[1]s-2","version":{"when":"2025-11-08T11:00:00.000Z","by":{"accountId":"acc-9"}}},
			{"id":"c%[1]s-3","version":{"when":"2025-10-08T11:00:00.000Z","by":{"accountId":"acc-1"}}}
		]}`, id)
	default:
		f.t.Errorf("unexpected path %q", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL + "/wiki", Email: "alice@example.com", APIToken: "secret-token", Concurrency: 2})
	require.NoError(t, err)
	return c
}

func TestCreatedAndUpdatedPages(t *testing.T) {
	c := newTestClient(t, &fakeWiki{t: t})
	w := testWindow(t)

	created, err := c.CreatedPages(context.Background(), "acc-1", w, "")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "1", created[0].ID)
	assert.True(t, created[0].IsInitialVersion)

	updated, err := c.UpdatedPages(context.Background(), "acc-1", w, "")
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "1", updated[0].ID)
	assert.True(t, updated[0].IsInitialVersion)
	assert.Equal(t, "2", updated[1].ID)
	assert.False(t, updated[1].IsInitialVersion)
}

func TestComments(t *testing.T) {
	c := newTestClient(t, &fakeWiki{t: t})

	var progress atomic.Int32
	comments, err := c.Comments(context.Background(), "acc-1", testWindow(t), "", func(done, total int) {
		progress.Add(1)
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	require.Len(t, comments, 3)
	for i, id := range []string{"1", "2", "3"} {
		assert.Equal(t, "c"+id+"-1", comments[i].ID)
		assert.Equal(t, id, comments[i].PageID)
		assert.Equal(t, "acc-1", comments[i].Author)
	}
	assert.Equal(t, "OPS", comments[2].SpaceKey)
	assert.Equal(t, int32(3), progress.Load())
}

func TestCommentFailureFailsCall(t *testing.T) {
	c := newTestClient(t, &fakeWiki{t: t, failPage: "2"})

	comments, err := c.Comments(context.Background(), "acc-1", testWindow(t), "", nil)
	require.Error(t, err)
	assert.Nil(t, comments)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestSearchPagination(t *testing.T) {
	const total = 120
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, 50, limit)
		var results []string
		for i := start; i < total && i < start+limit; i++ {
			results = append(results, fmt.Sprintf(`{"id":"%d"}`, i))
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(results, ","))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, BearerToken: "pat"})
	require.NoError(t, err)

	got, err := c.search(context.Background(), "type = page", "version")
	require.NoError(t, err)
	assert.Len(t, got, total)
	assert.Equal(t, "0", got[0].ID)
	assert.Equal(t, "119", got[total-1].ID)
	assert.Equal(t, int32(3), requests.Load())
}

func TestNewClientConfiguration(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "https://acme.atlassian.net/wiki"})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))

	_, err = NewClient(Options{Email: "a@b.c", APIToken: "tok"})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
}
