package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"prism-backend/internal/prism"
	"prism-backend/internal/shared/metrics"
	"prism-backend/internal/shared/telemetry"
)

const (
	DefaultTitleTimeout = 5 * time.Second
	DefaultTitleLimit   = 20

	maxTitlePrefix = 16 << 10
	maxTitleRunes  = 199
	userAgent      = "Mozilla/5.0 (compatible; PrismBot/1.0)"
)

var closingTitle = []byte("</title>")

// Resolver enriches grounding sources with the real page titles.
type Resolver struct {
	httpClient *http.Client
	timeout    time.Duration
	limit      int
}

// NewResolver returns a Resolver. Zero timeout or limit selects the defaults.
func NewResolver(httpClient *http.Client, timeout time.Duration, limit int) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTitleTimeout
	}
	if limit <= 0 {
		limit = DefaultTitleLimit
	}
	return &Resolver{httpClient: httpClient, timeout: timeout, limit: limit}
}

// FetchActualTitles fetches the first limit sources concurrently and replaces
// each title with the page's <title> when one of plausible length is found.
// Failures leave the original title in place; the call never fails.
func (r *Resolver) FetchActualTitles(ctx context.Context, in []prism.GroundingSource) []prism.GroundingSource {
	out := append([]prism.GroundingSource(nil), in...)
	n := len(out)
	if n > r.limit {
		n = r.limit
	}
	if n == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(r.limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			title, err := r.fetchTitle(ctx, out[i].URL)
			switch {
			case err != nil:
				metrics.IncTitleFetch("error")
				telemetry.Debug("title fetch failed", map[string]any{"url": out[i].URL, "error": err.Error()})
			case title == "":
				metrics.IncTitleFetch("missing")
			default:
				metrics.IncTitleFetch("ok")
				out[i].Title = title
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) fetchTitle(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	prefix, err := readTitlePrefix(resp.Body)
	if err != nil {
		return "", err
	}
	return ExtractTitle(prefix), nil
}

// readTitlePrefix reads at most maxTitlePrefix bytes, stopping once a closing title tag arrives.
func readTitlePrefix(body io.Reader) ([]byte, error) {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for len(buf) < maxTitlePrefix {
		n, err := body.Read(chunk)
		if n > 0 {
			if room := maxTitlePrefix - len(buf); n > room {
				n = room
			}
			buf = append(buf, chunk[:n]...)
			if bytes.Contains(bytes.ToLower(buf), closingTitle) {
				break
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(buf) > 0 {
				break
			}
			return nil, err
		}
	}
	return buf, nil
}

// ExtractTitle returns the whitespace-collapsed <title> of a possibly truncated HTML document,
// or "" when none of 1 to 199 characters is present.
func ExtractTitle(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if n := utf8.RuneCountInString(title); n < 1 || n > maxTitleRunes {
		return ""
	}
	return title
}
