package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIngredients(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "dedicated container",
			html: `<html><body>
				<h1>Orijen Original Cat</h1>
				<div class="product-ingredients"><h3>Ingredients</h3><p>Fresh chicken, turkey, whole herring</p></div>
			</body></html>`,
			want: "Fresh chicken, turkey, whole herring",
		},
		{
			name: "heading followed by paragraph",
			html: `<html><body>
				<h2>Composition</h2>
				<p>Dried lamb (24%), rice, maize, beet pulp</p>
			</body></html>`,
			want: "Dried lamb (24%), rice, maize, beet pulp",
		},
		{
			name: "definition list",
			html: `<html><body><dl>
				<dt>Analytical constituents</dt><dd>Protein 32%</dd>
				<dt>Ingredients:</dt><dd>Salmon, potato, pea protein, fish oil</dd>
			</dl></body></html>`,
			want: "Salmon, potato, pea protein, fish oil",
		},
		{
			name: "bold label inline",
			html: `<html><body><p><strong>Ingredients:</strong> chicken meal, brown rice, oats</p></body></html>`,
			want: "chicken meal, brown rice, oats",
		},
		{
			name: "plain inline text",
			html: `<html><body><div>Composition: beef, liver, carrots, minerals</div></body></html>`,
			want: "beef, liver, carrots, minerals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIngredients(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractIngredients_RemovesNoise(t *testing.T) {
	html := `<html><body>
		<script>var ingredients = "not these";</script>
		<footer><div class="ingredients">Footer ingredients link list</div></footer>
		<p>Nothing else here.</p>
	</body></html>`

	_, err := ExtractIngredients(strings.NewReader(html))
	assert.ErrorIs(t, err, ErrIngredientsNotFound)
}

func TestExtractIngredients_TooShort(t *testing.T) {
	html := `<html><body><h3>Ingredients</h3><p>Fish</p></body></html>`

	_, err := ExtractIngredients(strings.NewReader(html))
	assert.ErrorIs(t, err, ErrIngredientsNotFound)
}

func TestFetchIngredients(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/product":
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Write([]byte(`<html><body><h2>Ingredients</h2><p>Chicken, rice, fish oil</p></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	s := New(5 * time.Second)

	t.Run("success", func(t *testing.T) {
		got, err := s.FetchIngredients(context.Background(), ts.URL+"/product")
		require.NoError(t, err)
		assert.Equal(t, "Chicken, rice, fish oil", got)
	})

	t.Run("non-200 status", func(t *testing.T) {
		_, err := s.FetchIngredients(context.Background(), ts.URL+"/missing")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrIngredientsNotFound))
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.FetchIngredients(ctx, ts.URL+"/product")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
