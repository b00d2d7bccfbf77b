package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// webResult is a single parsed search result.
type webResult struct {
	Title   string
	URL     string
	Snippet string
}

// RegisterWebTools adds the web search tool. It uses the DuckDuckGo HTML
// endpoint, which needs no API key; failures come back as text so a dead
// network never breaks the worker loop.
func RegisterWebTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "search_web",
		Description: "Search the web and return titles, URLs, and snippets.",
		Category:    CategoryWeb,
		Schema: ToolSchema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "The search query"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query := StringArg(args, "query")
			if query == "" {
				return "No query given.", nil
			}
			results, err := searchDuckDuckGo(ctx, query, 10)
			if err != nil {
				return fmt.Sprintf("Web search failed: %v", err), nil
			}
			if len(results) == 0 {
				return "No results found for: " + query, nil
			}
			var b strings.Builder
			for i, res := range results {
				if i > 0 {
					b.WriteString("\n\n")
				}
				fmt.Fprintf(&b, "%d. %s\n%s", i+1, res.Title, res.URL)
				if res.Snippet != "" {
					b.WriteString("\n")
					b.WriteString(res.Snippet)
				}
			}
			return b.String(), nil
		},
	})
}

// searchDuckDuckGo performs a search using the DuckDuckGo HTML interface.
func searchDuckDuckGo(ctx context.Context, query string, maxResults int) ([]webResult, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseSearchResults(string(body), maxResults)
}

// parseSearchResults extracts search results from DuckDuckGo HTML, which
// marks each hit with class "result results_links".
func parseSearchResults(htmlContent string, maxResults int) ([]webResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []webResult

	var findResults func(*html.Node)
	findResults = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			for _, attr := range n.Attr {
				if attr.Key == "class" && strings.Contains(attr.Val, "result") && strings.Contains(attr.Val, "results_links") {
					res := extractResult(n)
					if res.URL != "" && res.Title != "" {
						results = append(results, res)
					}
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findResults(c)
		}
	}

	findResults(doc)
	return results, nil
}

func extractResult(n *html.Node) webResult {
	var res webResult

	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "class" {
					if strings.Contains(attr.Val, "result__a") {
						res.URL = attrValue(n, "href")
						res.Title = textContent(n)
					} else if strings.Contains(attr.Val, "result__snippet") {
						res.Snippet = textContent(n)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}

	extract(n)

	// Unwrap DuckDuckGo redirect URLs.
	if strings.HasPrefix(res.URL, "//duckduckgo.com/l/?uddg=") {
		if decoded, err := url.QueryUnescape(strings.TrimPrefix(res.URL, "//duckduckgo.com/l/?uddg=")); err == nil {
			if idx := strings.Index(decoded, "&"); idx > 0 {
				decoded = decoded[:idx]
			}
			res.URL = decoded
		}
	}
	return res
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var getText func(*html.Node)
	getText = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			getText(c)
		}
	}
	getText(n)
	return strings.TrimSpace(b.String())
}
