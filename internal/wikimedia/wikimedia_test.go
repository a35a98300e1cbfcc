package wikimedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wikistats/wikiviews/internal/timex"
)

func testClient(handler http.Handler) (*Client, func()) {
	srv := httptest.NewServer(handler)
	c := New()
	c.RestBase = srv.URL
	c.ActionBase = srv.URL + "/w/api.php"
	return c, srv.Close
}

func testRange(t *testing.T) timex.Range {
	t.Helper()
	r, err := timex.NewRange(timex.NewDate(2016, time.March, 1), timex.NewDate(2016, time.March, 3))
	require.NoError(t, err)
	return r
}

func TestPageviewsPerArticle(t *testing.T) {
	var gotPath string
	c, done := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"items":[
			{"timestamp":"2016030100","views":10},
			{"timestamp":"2016030300","views":30}
		]}`))
	}))
	defer done()

	raw, err := c.PageviewsPerArticle(context.Background(), "en.wikipedia", "all-access", "user", "New York City", testRange(t))
	require.NoError(t, err)
	require.Equal(t,
		"/metrics/pageviews/per-article/en.wikipedia/all-access/user/New_York_City/daily/2016030100/2016030300",
		gotPath)
	require.Len(t, raw, 2)
	require.Equal(t, timex.NewDate(2016, time.March, 1), raw[0].Date)
	require.Equal(t, int64(10), raw[0].Views)
	require.Equal(t, int64(30), raw[1].Views)
}

func TestErrorClassification(t *testing.T) {
	type Case struct {
		status    int
		body      string
		retryable bool
		notFound  bool
	}
	cases := []Case{
		{status: 500, body: `{"title":"Error in Cassandra table storage backend"}`, retryable: true},
		{status: 404, body: `{"title":"Not found.","detail":"no data"}`, notFound: true},
		{status: 400, body: `{"title":"Invalid parameters"}`},
		{status: 503, body: `not even json`},
	}
	for _, k := range cases {
		c, done := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(k.status)
			w.Write([]byte(k.body))
		}))
		_, err := c.Siteviews(context.Background(), "en.wikipedia", "all-access", "user", testRange(t))
		done()

		require.Error(t, err)
		require.Equal(t, k.retryable, IsRetryable(err), "status %d", k.status)
		require.Equal(t, k.notFound, NotFound(err), "status %d", k.status)
	}
}

func TestUniqueDevicesAndMediarequests(t *testing.T) {
	c, done := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"timestamp":"2016030200","devices":7,"requests":9}]}`))
	}))
	defer done()

	devices, err := c.UniqueDevices(context.Background(), "en.wikipedia", "all-sites", testRange(t))
	require.NoError(t, err)
	require.Equal(t, int64(7), devices[0].Views)

	reqs, err := c.Mediarequests(context.Background(), "all-referers", "user", "Foo.jpg", testRange(t))
	require.NoError(t, err)
	require.Equal(t, int64(9), reqs[0].Views)
}

func TestRedirects(t *testing.T) {
	c, done := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "NYC", r.URL.Query().Get("titles"))
		w.Write([]byte(`{"query":{"pages":[{
			"title":"NYC",
			"redirects":[
				{"title":"New York City"},
				{"title":"Big Apple","fragment":"Nicknames"}
			]
		}]}}`))
	}))
	defer done()

	redirects, err := c.Redirects(context.Background(), "en.wikipedia", "NYC")
	require.NoError(t, err)
	require.Equal(t, []Redirect{
		{Title: "NYC"},
		{Title: "New York City"},
		{Title: "Big Apple", Fragment: "Nicknames"},
	}, redirects)
}

func TestRedirectsMissingPage(t *testing.T) {
	c, done := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":[{"title":"Nope","missing":true}]}}`))
	}))
	defer done()

	_, err := c.Redirects(context.Background(), "en.wikipedia", "Nope")
	require.Error(t, err)
	require.True(t, NotFound(err))
}

func TestPageInfos(t *testing.T) {
	c, done := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "New York City|Cat", r.URL.Query().Get("titles"))
		w.Write([]byte(`{"query":{"pages":[
			{"title":"New York City","length":250000,"watchers":1200,"protection":[
				{"type":"edit","level":"autoconfirmed"},
				{"type":"move","level":"sysop"}
			]},
			{"title":"Cat","length":90000,"watchers":400,"protection":[]}
		]}}`))
	}))
	defer done()

	infos, err := c.PageInfos(context.Background(), "en.wikipedia", []string{"New_York_City", "Cat"})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, int64(250000), infos["New_York_City"].Length)
	require.Equal(t, "autoconfirmed", infos["New_York_City"].Protection)
	require.Equal(t, int64(400), infos["Cat"].Watchers)
	require.Empty(t, infos["Cat"].Protection)
}

func TestNormalizeTitle(t *testing.T) {
	require.Equal(t, "New_York_City", NormalizeTitle(" New York City "))
	require.Equal(t, "Cat", NormalizeTitle("Cat"))
	require.Equal(t, "New York City", DisplayTitle("New_York_City"))
}
