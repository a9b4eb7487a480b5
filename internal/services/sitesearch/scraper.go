// -----------------------------------------------------------------------
// Site Scraper - extracts product candidates from supplier result pages
// -----------------------------------------------------------------------

package sitesearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// Default selectors used when a supplier has none configured. They cover the
// common "list of product cards" markup.
const (
	defaultItemSelector  = ".product, .produto, [data-product], li.result"
	defaultNameSelector  = ".name, .nome, h2, h3"
	defaultPriceSelector = ".price, .preco, [data-price]"
	defaultDescSelector  = ".description, .descricao, p"
	defaultLinkSelector  = "a"
)

// Scraper fetches supplier result pages and extracts product candidates with
// goquery. JS-heavy sites go through the renderer first.
type Scraper struct {
	config      common.SiteSearchConfig
	logger      arbor.ILogger
	httpClient  *http.Client
	renderer    *Renderer
	mdConverter *md.Converter
}

// NewScraper creates a scraper. renderer may be nil to disable JS rendering.
func NewScraper(config common.SiteSearchConfig, renderer *Renderer, logger arbor.ILogger) *Scraper {
	return &Scraper{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		renderer:    renderer,
		mdConverter: md.NewConverter("", true, nil),
	}
}

// BuildSearchURL substitutes the search term into a target's URL pattern.
// Patterns carry a "*" placeholder; a pattern without one gets the term
// appended as a query.
func BuildSearchURL(pattern, term string) string {
	escaped := url.QueryEscape(term)
	if strings.Contains(pattern, "*") {
		return strings.Replace(pattern, "*", escaped, 1)
	}
	separator := "?"
	if strings.Contains(pattern, "?") {
		separator = "&"
	}
	return pattern + separator + "q=" + escaped
}

// Search implements interfaces.SiteSearcher.
func (s *Scraper) Search(ctx context.Context, target interfaces.SearchTarget, term string, limit int) ([]models.Product, error) {
	searchURL := BuildSearchURL(target.URLPattern, term)

	html, err := s.fetch(ctx, target, searchURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", searchURL, err)
	}

	products, err := s.extract(target, searchURL, html, limit)
	if err != nil {
		return nil, fmt.Errorf("extract from %s: %w", searchURL, err)
	}

	s.logger.Debug().
		Str("supplier", target.SupplierName).
		Str("url", searchURL).
		Int("found", len(products)).
		Msg("Site search completed")

	return products, nil
}

// fetch retrieves the page body, rendering JavaScript when the target
// requires it and a renderer is available.
func (s *Scraper) fetch(ctx context.Context, target interfaces.SearchTarget, searchURL string) (string, error) {
	if target.RenderJS && s.renderer != nil {
		return s.renderer.FetchHTML(ctx, searchURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if s.config.MaxBodySize > 0 {
		body = io.LimitReader(resp.Body, int64(s.config.MaxBodySize))
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extract parses the result page and builds candidate products.
func (s *Scraper) extract(target interfaces.SearchTarget, pageURL, html string, limit int) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	sel := target.Selectors
	itemSel := orDefault(sel.Item, defaultItemSelector)
	nameSel := orDefault(sel.Name, defaultNameSelector)
	priceSel := orDefault(sel.Price, defaultPriceSelector)
	descSel := orDefault(sel.Description, defaultDescSelector)
	linkSel := orDefault(sel.Link, defaultLinkSelector)

	base, _ := url.Parse(pageURL)

	var products []models.Product
	doc.Find(itemSel).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if limit > 0 && len(products) >= limit {
			return false
		}

		name := strings.TrimSpace(item.Find(nameSel).First().Text())
		if name == "" {
			return true
		}

		price := strings.TrimSpace(item.Find(priceSel).First().Text())

		description := ""
		if descHTML, err := item.Find(descSel).First().Html(); err == nil && descHTML != "" {
			// Markdown keeps the description readable once truncated for
			// the LLM prompt
			if mdText, err := s.mdConverter.ConvertString(descHTML); err == nil {
				description = strings.TrimSpace(mdText)
			}
		}

		link := ""
		if href, ok := item.Find(linkSel).First().Attr("href"); ok {
			link = absolutize(base, href)
		}

		products = append(products, models.Product{
			Name:         name,
			Description:  description,
			Price:        price,
			PriceValue:   ParsePrice(price),
			URL:          link,
			SupplierID:   target.SupplierID,
			SupplierName: target.SupplierName,
			MarketScale:  target.MarketScale,
		})
		return true
	})

	return products, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func absolutize(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

var priceDigits = regexp.MustCompile(`[\d.,]+`)

// ParsePrice extracts a numeric value from a raw price string like
// "R$ 1.234,56" or "$1,234.56". Returns 0 when no number is found.
func ParsePrice(raw string) float64 {
	match := priceDigits.FindString(raw)
	if match == "" {
		return 0
	}

	// Decide decimal separator by whichever comes last
	lastComma := strings.LastIndex(match, ",")
	lastDot := strings.LastIndex(match, ".")
	if lastComma > lastDot {
		// Brazilian format: thousands '.', decimal ','
		match = strings.ReplaceAll(match, ".", "")
		match = strings.Replace(match, ",", ".", 1)
	} else {
		match = strings.ReplaceAll(match, ",", "")
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}
