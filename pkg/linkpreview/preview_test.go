package linkpreview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head>
<title> Plain Title </title>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG Description">
<meta name="description" content="Meta Description">
<meta property="og:image" content="https://img.example/thumb.png">
</head><body></body></html>`

func TestClassify(t *testing.T) {
	assert.Equal(t, KindYoutube, Classify("https://www.youtube.com/watch?v=1"))
	assert.Equal(t, KindYoutube, Classify("https://youtu.be/1"))
	assert.Equal(t, KindWikipedia, Classify("https://en.wikipedia.org/wiki/Go"))
	assert.Equal(t, KindOther, Classify("https://go.dev"))
}

func TestParseYoutubeUsesOpenGraph(t *testing.T) {
	p, err := Parse("https://youtu.be/1", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "OG Title", *p.Title)
	assert.Equal(t, "OG Description", *p.Description)
	assert.Equal(t, "https://img.example/thumb.png", *p.Thumbnail)
}

func TestParseWikipediaTitleOnly(t *testing.T) {
	p, err := Parse("https://en.wikipedia.org/wiki/Go", strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "OG Title", *p.Title)
	assert.Nil(t, p.Description)
	assert.Nil(t, p.Thumbnail)
}

func TestParseOtherFallsBackToMetaDescription(t *testing.T) {
	doc := `<html><head><title>Docs</title><meta name="description" content="About docs"></head></html>`
	p, err := Parse("https://go.dev", strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Docs", *p.Title)
	assert.Equal(t, "About docs", *p.Description)
	assert.Nil(t, p.Thumbnail)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	p, err := NewFetcher(time.Second, 0).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, KindOther, p.Kind)
	assert.Equal(t, "Plain Title", *p.Title)
	assert.Equal(t, "OG Description", *p.Description)
}

func TestFetchRejectsBadURLs(t *testing.T) {
	f := NewFetcher(time.Second, 0)
	for _, raw := range []string{"ftp://x", "/relative", "javascript:alert(1)"} {
		_, err := f.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, ErrUnsupportedURL, raw)
	}
}

func TestFetchSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second, 0).Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "404")
}
