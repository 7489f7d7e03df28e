package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/service"
)

// Paginated is the list envelope: total count, neighbour page links and
// the rows of the requested page.
type Paginated struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// parsePage reads ?page (1-based) and ?limit. A missing or bad limit falls
// back to the default size; limits above the maximum are clamped.
func (s Settings) parsePage(c *gin.Context) (service.Page, error) {
	page := service.Page{Number: 1, Size: s.PageSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, apierr.NotFound("page")
		}
		page.Number = n
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page.Size = n
		}
	}
	if s.MaxPageSize > 0 && page.Size > s.MaxPageSize {
		page.Size = s.MaxPageSize
	}
	return page, nil
}

// paginate builds the envelope. Asking for a page past the end is a 404,
// except page 1 of an empty result.
func (s Settings) paginate(c *gin.Context, page service.Page, total int64, results interface{}) (*Paginated, error) {
	if page.Number > 1 && int64(page.Offset()) >= total {
		return nil, apierr.NotFound("page")
	}
	out := &Paginated{Count: total, Results: results}
	if int64(page.Offset()+page.Size) < total {
		out.Next = s.pageURL(c, page.Number+1)
	}
	if page.Number > 1 {
		out.Previous = s.pageURL(c, page.Number-1)
	}
	return out, nil
}

func (s Settings) pageURL(c *gin.Context, number int) *string {
	q := c.Request.URL.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u := url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}
	link := s.baseURL(c) + u.String()
	return &link
}

func (s Settings) baseURL(c *gin.Context) string {
	if s.PublicURL != "" {
		return s.PublicURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// recipesLimit reads ?recipes_limit for subscription views.
func (s Settings) recipesLimit(c *gin.Context) int {
	if raw := c.Query("recipes_limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return s.RecipesLimit
}
