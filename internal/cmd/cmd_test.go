package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunPageviewsCommand(t *testing.T) {
	var (
		mu  sync.Mutex
		got string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.URL.Path
		mu.Unlock()
		w.Write([]byte(`{"items":[{"timestamp":"2016030100","views":3}]}`))
	}))
	defer srv.Close()

	err := App().Run(context.Background(), []string{"wikiviews", "pageviews",
		"--rest-base", srv.URL,
		"--start", "2016-03-01", "--end", "2016-03-01",
		"--json",
		"Cat",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t,
		"/metrics/pageviews/per-article/en.wikipedia/all-access/user/Cat/daily/2016030100/2016030100",
		got)
}
