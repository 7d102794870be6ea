package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/gemchat/gemchat/internal/logging"
)

// maxScrapeLength caps scraped page content to keep prompts inside
// model token limits.
const maxScrapeLength = 10000

const searchResultLimit = 5

// Some hosts refuse requests without a browser user agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ScrapeResult is a fetched page reduced to markdown.
type ScrapeResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// handleScrape fetches a URL and returns its content as markdown with
// scripts and other noise stripped.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeGeneralError(w, http.StatusBadRequest, "URL required")
		return
	}

	logging.Info().Str("url", req.URL).Msg("scraping page")

	resp, err := s.webClient.Get(req.URL)
	if err != nil {
		writeGeneralError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch URL: %v", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		writeGeneralError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch URL: %s", resp.Status))
		return
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		writeGeneralError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to parse page: %v", err))
		return
	}

	doc.Find("script, style, iframe, noscript, svg, img").Remove()

	converter := md.NewConverter("", true, nil)
	content := strings.TrimSpace(converter.Convert(doc.Find("body")))
	if len(content) > maxScrapeLength {
		content = content[:maxScrapeLength] + "... [Content Truncated]"
	}

	title := strings.TrimSpace(doc.Find("title").Text())
	if title == "" {
		title = req.URL
	}

	writeJSON(w, http.StatusOK, ScrapeResult{Title: title, Content: content})
}

// handleSearch scrapes the DuckDuckGo HTML endpoint for the top hits.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeGeneralError(w, http.StatusBadRequest, "Query required")
		return
	}

	logging.Info().Str("query", req.Query).Msg("searching web")

	searchReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
		s.searchURL+"?q="+url.QueryEscape(req.Query), nil)
	if err != nil {
		writeGeneralError(w, http.StatusInternalServerError, err.Error())
		return
	}
	searchReq.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.webClient.Do(searchReq)
	if err != nil {
		writeGeneralError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch search results: %v", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		writeGeneralError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch search results: %s", resp.Status))
		return
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		writeGeneralError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to parse search results: %v", err))
		return
	}

	results := []SearchResult{}
	doc.Find(".result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= searchResultLimit {
			return false
		}
		title := strings.TrimSpace(sel.Find(".result__a").Text())
		link, _ := sel.Find(".result__a").Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())

		if title != "" && link != "" {
			results = append(results, SearchResult{Title: title, Link: link, Snippet: snippet})
		}
		return true
	})

	writeJSON(w, http.StatusOK, map[string][]SearchResult{"results": results})
}
