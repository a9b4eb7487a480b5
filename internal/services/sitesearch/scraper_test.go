package sitesearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

func testSiteSearchConfig() common.SiteSearchConfig {
	return common.SiteSearchConfig{
		UserAgent:      "cotiza-test/1.0",
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}
}

const resultsPage = `<!DOCTYPE html>
<html><body>
<ul>
  <li class="produto">
    <h3 class="nome">Teclado mecanico</h3>
    <span class="preco">R$ 399,90</span>
    <p class="descricao">Switches <b>azuis</b></p>
    <a href="/p/teclado-mecanico">ver</a>
  </li>
  <li class="produto">
    <h3 class="nome">Teclado compacto</h3>
    <span class="preco">R$ 249,00</span>
    <p class="descricao">60% ABNT2</p>
    <a href="/p/teclado-compacto">ver</a>
  </li>
  <li class="produto">
    <h3 class="nome">Teclado de escritorio</h3>
    <span class="preco">R$ 89,90</span>
    <p class="descricao">Basico</p>
    <a href="/p/teclado-escritorio">ver</a>
  </li>
</ul>
</body></html>`

func TestScraperSearchExtractsCandidates(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, resultsPage)
	}))
	defer server.Close()

	scraper := NewScraper(testSiteSearchConfig(), nil, arbor.NewLogger())
	target := interfaces.SearchTarget{
		SupplierID:   "forn_a",
		SupplierName: "Site A",
		URLPattern:   server.URL + "/busca?q=*",
		MarketScale:  models.MarketScaleNational,
	}

	products, err := scraper.Search(context.Background(), target, "teclado mecanico", 10)
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, "teclado mecanico", gotQuery)
	assert.Equal(t, "Teclado mecanico", products[0].Name)
	assert.Equal(t, 399.90, products[0].PriceValue)
	assert.Equal(t, "forn_a", products[0].SupplierID)
	assert.Equal(t, server.URL+"/p/teclado-mecanico", products[0].URL, "relative links are absolutized")
	assert.Contains(t, products[0].Description, "azuis")
}

func TestScraperSearchHonorsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, resultsPage)
	}))
	defer server.Close()

	scraper := NewScraper(testSiteSearchConfig(), nil, arbor.NewLogger())
	target := interfaces.SearchTarget{URLPattern: server.URL + "/busca?q=*"}

	products, err := scraper.Search(context.Background(), target, "teclado", 2)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestScraperSearchNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scraper := NewScraper(testSiteSearchConfig(), nil, arbor.NewLogger())
	target := interfaces.SearchTarget{URLPattern: server.URL + "/*"}

	_, err := scraper.Search(context.Background(), target, "teclado", 5)
	assert.Error(t, err)
}

func TestBuildSearchURL(t *testing.T) {
	cases := []struct {
		pattern string
		term    string
		want    string
	}{
		{"https://a.example/busca/*", "cabo hdmi", "https://a.example/busca/cabo+hdmi"},
		{"https://a.example/busca?q=*", "mouse", "https://a.example/busca?q=mouse"},
		{"https://a.example/busca", "mouse", "https://a.example/busca?q=mouse"},
		{"https://a.example/busca?cat=1", "mouse", "https://a.example/busca?cat=1&q=mouse"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BuildSearchURL(tc.pattern, tc.term), "pattern %s", tc.pattern)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"R$ 1.234,56", 1234.56},
		{"R$ 99,90", 99.90},
		{"$1,234.56", 1234.56},
		{"42", 42},
		{"R$ 10", 10},
		{"consulte", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParsePrice(tc.raw), "raw %q", tc.raw)
	}
}

func TestRateLimiterSpacingPerDomain(t *testing.T) {
	limiter := NewRateLimiter(10, 1) // 100ms spacing after the burst
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://a.example/busca"))
	require.NoError(t, limiter.Wait(ctx, "https://b.example/busca"))
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 50*time.Millisecond, "distinct domains are not throttled against each other")

	start = time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://a.example/busca"))
	elapsed = time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond, "same domain waits for the limiter")
}
