package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/arturoeanton/go-rag-qa/internal/port"
)

// DefaultTimeout bounds one page fetch.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 10 << 20

var _ port.PageFetcher = (*Fetcher)(nil)

// Fetcher implements port.PageFetcher with a plain HTTP GET and HTML text extraction.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

// New creates a Fetcher whose requests time out after timeout (DefaultTimeout when <= 0).
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "go-rag-qa/1.0",
	}
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: url %q: %w", port.ErrInvalidInput, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url %q: scheme must be http or https", port.ErrInvalidInput, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url %q: missing host", port.ErrInvalidInput, raw)
	}
	return nil
}

// FetchPageText downloads rawURL and returns its visible text. Block elements
// become paragraph breaks so the chunker can split on them.
func (f *Fetcher) FetchPageText(ctx context.Context, rawURL string) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		b, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", rawURL, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	text, err := ExtractText(body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return text, nil
}

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Ul: true, atom.Ol: true, atom.Main: true, atom.Nav: true,
}

// ExtractText tokenizes an HTML document and returns its visible text, one
// paragraph per block element, paragraphs separated by a blank line.
func ExtractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)

	var (
		paragraphs []string
		current    strings.Builder
		depth      int
	)
	flush := func() {
		if p := strings.Join(strings.Fields(current.String()), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			flush()
			return strings.Join(paragraphs, "\n\n"), nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if skipped[tok.DataAtom] {
				if tok.Type == html.StartTagToken {
					depth++
				}
				continue
			}
			if depth == 0 && blocks[tok.DataAtom] {
				flush()
			}

		case html.EndTagToken:
			tok := z.Token()
			if skipped[tok.DataAtom] {
				if depth > 0 {
					depth--
				}
				continue
			}
			if depth == 0 && blocks[tok.DataAtom] {
				flush()
			}

		case html.TextToken:
			if depth == 0 {
				current.WriteString(" ")
				current.Write(z.Text())
			}
		}
	}
}
