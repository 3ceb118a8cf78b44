// Package scraper pulls the ingredient list out of a pet food product page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrIngredientsNotFound is returned when the page has no usable ingredient section.
var ErrIngredientsNotFound = errors.New("ingredients not found on product page")

const (
	minIngredientsLength = 10
	maxIngredientsLength = 4000
	userAgent            = "Mozilla/5.0 (compatible; PetFoodVerifAI/1.0)"
)

var (
	keywords   = []string{"ingredients", "composition", "ingrédients", "zusammensetzung", "skład"}
	spaceRe    = regexp.MustCompile(`\s+`)
	inlineRe   = regexp.MustCompile(`(?i)(?:ingredients|composition)\s*:\s*(.+)`)
	noiseQuery = "script, style, noscript, nav, footer, header, iframe, form, svg, .ads, #ads, .cookie, #cookie-banner"
	// Attribute matches cover the product tab/accordion markup most shops use.
	attrQuery = `[id*="ingredient"], [class*="ingredient"], [id*="composition"], [class*="composition"], [itemprop="ingredients"]`
	headQuery = "h1, h2, h3, h4, h5, h6, dt, th, strong, b, button, summary, label"
)

// Fetcher retrieves ingredient text for a product URL.
type Fetcher interface {
	FetchIngredients(ctx context.Context, url string) (string, error)
}

// Scraper fetches product pages over HTTP.
type Scraper struct {
	httpClient *http.Client
}

// New creates a Scraper whose requests time out after timeout.
func New(timeout time.Duration) *Scraper {
	return &Scraper{httpClient: &http.Client{Timeout: timeout}}
}

// FetchIngredients downloads url and extracts its ingredient list.
func (s *Scraper) FetchIngredients(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch product page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch product page: status %d", resp.StatusCode)
	}
	return ExtractIngredients(resp.Body)
}

// ExtractIngredients finds the ingredient section of an HTML document.
// It tries dedicated ingredient containers first, then headings followed by
// their content, then inline "Ingredients: ..." text.
func ExtractIngredients(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse product page: %w", err)
	}

	// Remove noise before searching
	doc.Find(noiseQuery).Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	if text, ok := fromContainers(doc); ok {
		return text, nil
	}
	if text, ok := fromHeadings(doc); ok {
		return text, nil
	}
	if text, ok := fromInline(doc); ok {
		return text, nil
	}
	return "", ErrIngredientsNotFound
}

func fromContainers(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find(attrQuery).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := stripLabel(clean(s.Text()))
		if usable(text) {
			found = truncate(text)
			return false
		}
		return true
	})
	return found, found != ""
}

func fromHeadings(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find(headQuery).EachWithBreak(func(i int, s *goquery.Selection) bool {
		heading := clean(s.Text())
		if !isLabel(heading) {
			return true
		}
		// <dt>Ingredients</dt><dd>...</dd>, <h3>Ingredients</h3><p>...</p>
		if text := clean(s.Next().Text()); usable(text) {
			found = truncate(text)
			return false
		}
		// <p><strong>Ingredients:</strong> chicken, rice</p>
		parent := clean(s.Parent().Text())
		if text := stripLabel(parent); text != parent && usable(text) {
			found = truncate(text)
			return false
		}
		return true
	})
	return found, found != ""
}

func fromInline(doc *goquery.Document) (string, bool) {
	var found string
	doc.Find("p, li, div, span, td").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.Children().Length() > 3 {
			return true
		}
		m := inlineRe.FindStringSubmatch(clean(s.Text()))
		if m != nil && usable(m[1]) {
			found = truncate(m[1])
			return false
		}
		return true
	})
	return found, found != ""
}

func isLabel(text string) bool {
	if len(text) > 40 {
		return false
	}
	lower := strings.ToLower(strings.TrimRight(text, ": "))
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func stripLabel(text string) string {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.HasPrefix(lower, k) {
			return strings.TrimSpace(strings.TrimLeft(text[len(k):], ": "))
		}
	}
	return text
}

func usable(text string) bool {
	return len([]rune(text)) >= minIngredientsLength && !isLabel(text)
}

func clean(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

func truncate(text string) string {
	if r := []rune(text); len(r) > maxIngredientsLength {
		return string(r[:maxIngredientsLength])
	}
	return text
}
