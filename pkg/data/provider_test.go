package data

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const covertypeCSV = `Elevation,Slope,Id,Cover_Type
2596,3,1,5
2590,2,2,5
2804,9,3,2
`

func newUCIServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/api/dataset", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		switch r.URL.Query().Get("id") {
		case "31":
			fmt.Fprintf(w, `{"status":200,"data":{"uci_id":31,"name":"Covertype","data_url":"%s/static/covertype.csv",
"variables":[{"name":"Elevation","role":"Feature","type":"Integer"},{"name":"Slope","role":"Feature","type":"Integer"},
{"name":"Id","role":"ID","type":"Integer"},{"name":"Cover_Type","role":"Target","type":"Integer"}]}}`, srv.URL)
		case "7":
			fmt.Fprintf(w, `{"status":200,"data":{"uci_id":7,"name":"Broken","data_url":"%s/static/missing.csv",
"variables":[{"name":"a","role":"Feature"},{"name":"b","role":"Target"}]}}`, srv.URL)
		default:
			fmt.Fprint(w, `{"status":404,"message":"dataset not found"}`)
		}
	})
	mux.HandleFunc("/static/covertype.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, covertypeCSV)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestUCIProviderFetch(t *testing.T) {
	srv := newUCIServer(t, nil)
	p := NewUCIProvider(srv.URL, 0, nil)

	ds, err := p.Fetch("31")
	require.NoError(t, err)
	assert.Equal(t, "Covertype", ds.Name)
	assert.Equal(t, []string{"Elevation", "Slope"}, ds.FeatureNames)
	assert.Equal(t, [][]float64{{2596, 3}, {2590, 2}, {2804, 9}}, ds.X)
	assert.Equal(t, []int{5, 5, 2}, ds.Y)
	assert.Nil(t, ds.Classes)
	assert.NoError(t, ds.Validate())
}

func TestUCIProviderErrors(t *testing.T) {
	srv := newUCIServer(t, nil)

	tcs := map[string]struct {
		baseURL string
		id      string
	}{
		"unknown id":       {baseURL: srv.URL, id: "999"},
		"missing data":     {baseURL: srv.URL, id: "7"},
		"unreachable host": {baseURL: "http://127.0.0.1:1", id: "31"},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			_, err := NewUCIProvider(tc.baseURL, 0, nil).Fetch(tc.id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRetrieval), err.Error())
		})
	}
}

func TestCachedProvider(t *testing.T) {
	calls := 0
	srv := newUCIServer(t, &calls)
	p, err := NewCachedProvider(NewUCIProvider(srv.URL, 0, nil), 2, nil)
	require.NoError(t, err)

	first, err := p.Fetch("31")
	require.NoError(t, err)
	second, err := p.Fetch("31")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = p.Fetch("999")
	require.Error(t, err)
	_, err = p.Fetch("999")
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, strings.HasPrefix(p.String(), "cached(1"))
}
