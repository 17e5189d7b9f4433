package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-rag-qa/internal/port"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Pets</title><style>body { color: red; }</style></head>
<body>
  <script>var tracking = "nope";</script>
  <h1>All about pets</h1>
  <p>Cats   purr when
     content.</p>
  <div>Dogs bark at <b>strangers</b> &amp; mail carriers.</div>
  <noscript>Enable JavaScript</noscript>
  <!-- hidden comment -->
</body>
</html>`

func TestExtractText(t *testing.T) {
	got, err := ExtractText(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "All about pets\n\nCats purr when content.\n\nDogs bark at strangers & mail carriers.", got)
	assert.NotContains(t, got, "tracking")
	assert.NotContains(t, got, "color")
	assert.NotContains(t, got, "JavaScript")
	assert.NotContains(t, got, "Pets\n")
}

func TestExtractText_Empty(t *testing.T) {
	got, err := ExtractText(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://example.com/page", true},
		{"http://localhost:8080", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"https://", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, port.ErrInvalidInput)
			}
		})
	}
}

func TestFetchPageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(page))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("  just text  \n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(5 * time.Second)

	got, err := f.FetchPageText(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Contains(t, got, "Cats purr when content.")

	got, err = f.FetchPageText(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "just text", got)

	_, err = f.FetchPageText(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}

func TestFetchPageText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := New(20 * time.Millisecond)
	_, err := f.FetchPageText(context.Background(), srv.URL)
	assert.Error(t, err)
}
