package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mica-backend/internal/utils"
	"mica-backend/pkg/logger"
)

const (
	googleSearchURL  = "https://www.google.com/search?q="
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Result 单条检索结果及其打分
type Result struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Snippet        string   `json:"snippet"`
	Source         string   `json:"source"`
	RelevanceScore float64  `json:"relevance_score"`
	Keywords       []string `json:"extracted_keywords"`
	Classification string   `json:"category_classification"`
}

// Response 一次市场数据检索的完整结果
type Response struct {
	Query           string   `json:"query"`
	Region          string   `json:"region,omitempty"`
	ProductCategory string   `json:"product_category,omitempty"`
	Results         []Result `json:"results"`
	TotalResults    int      `json:"total_results"`
}

type Searcher struct {
	client     *http.Client
	searchURL  string
	userAgent  string
	maxResults int
}

func NewSearcher(timeout time.Duration, maxResults int, userAgent string) *Searcher {
	if maxResults <= 0 {
		maxResults = 5
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Searcher{
		client:     utils.NewHTTPClient(timeout),
		searchURL:  googleSearchURL,
		userAgent:  userAgent,
		maxResults: maxResults,
	}
}

// SearchMarketData 检索市场数据并对结果打分、分类、排序
func (s *Searcher) SearchMarketData(ctx context.Context, query, region, productCategory string) (*Response, error) {
	searchQuery := buildQuery(query, region, productCategory)

	results, err := s.scrape(ctx, searchQuery)
	if err != nil {
		logger.Errorf("Web search failed for query %q: %v", searchQuery, err)
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	for i := range results {
		results[i].RelevanceScore = relevanceScore(results[i])
		results[i].Keywords = extractKeywords(results[i].Snippet)
		results[i].Classification = classifyContent(results[i])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	return &Response{
		Query:           searchQuery,
		Region:          region,
		ProductCategory: productCategory,
		Results:         results,
		TotalResults:    len(results),
	}, nil
}

// buildQuery 拼接查询词及市场情报相关的通用检索词
func buildQuery(query, region, productCategory string) string {
	terms := []string{query}
	if region != "" {
		terms = append(terms, "market "+region)
	}
	if productCategory != "" {
		terms = append(terms, productCategory+" appliances")
	}
	terms = append(terms, "market analysis", "market report", "market trends", "market size", "market forecast")
	return strings.Join(terms, " ")
}

func (s *Searcher) scrape(ctx context.Context, query string) ([]Result, error) {
	searchURL := s.searchURL + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search engine returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []Result
	doc.Find("div.g").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("h3").First().Text())
		href, _ := sel.Find("a").First().Attr("href")
		snippet := strings.TrimSpace(sel.Find("span.aCOpRe").First().Text())

		if title != "" && href != "" {
			results = append(results, Result{
				Title:   title,
				URL:     href,
				Snippet: snippet,
				Source:  "Google Search",
			})
		}
		return len(results) < s.maxResults
	})

	return results, nil
}

var (
	marketKeywords = []string{
		"market", "analysis", "report", "trend", "forecast", "growth",
		"size", "value", "demand", "supply", "competition", "industry",
	}

	applianceKeywords = []string{
		"panasonic", "home appliances", "consumer electronics", "smart home",
		"iot", "innovation", "technology", "sustainability",
	}

	keywordCategories = map[string][]string{
		"market_terms":     {"market", "analysis", "report", "trend", "forecast"},
		"product_terms":    {"appliance", "electronics", "home", "consumer", "smart"},
		"geographic_terms": {"asia", "europe", "america", "global", "regional"},
		"economic_terms":   {"growth", "revenue", "profit", "investment", "economy"},
	}

	classificationKeywords = map[string][]string{
		"Population & Households": {"population", "household", "demographic", "family", "urban", "rural"},
		"Society & Economy":       {"economy", "society", "social", "economic", "gdp", "income", "employment"},
		"Science & Technology":    {"technology", "innovation", "digital", "smart", "iot", "ai", "research"},
		"City & Nature":           {"city", "urban", "nature", "environment", "sustainability", "green", "climate"},
	}
)

// relevanceScore 按关键词命中加权，上限 1.0
func relevanceScore(r Result) float64 {
	content := strings.ToLower(r.Title + " " + r.Snippet)

	var score float64
	for _, keyword := range marketKeywords {
		if strings.Contains(content, keyword) {
			score += 0.1
		}
	}
	for _, keyword := range applianceKeywords {
		if strings.Contains(content, keyword) {
			score += 0.2
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func extractKeywords(text string) []string {
	textLower := strings.ToLower(text)
	seen := make(map[string]bool)
	var keywords []string

	for _, category := range []string{"market_terms", "product_terms", "geographic_terms", "economic_terms"} {
		for _, term := range keywordCategories[category] {
			if strings.Contains(textLower, term) && !seen[term] {
				seen[term] = true
				keywords = append(keywords, term)
			}
		}
	}
	return keywords
}

// classifyContent 归入四个固定分析类目之一
func classifyContent(r Result) string {
	content := strings.ToLower(r.Title + " " + r.Snippet)

	best := "Society & Economy"
	bestScore := 0
	for _, category := range []string{"Population & Households", "Society & Economy", "Science & Technology", "City & Nature"} {
		score := 0
		for _, keyword := range classificationKeywords[category] {
			if strings.Contains(content, keyword) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = category
		}
	}
	return best
}

// GenerateReport 将检索结果整理成 Markdown 报告
func GenerateReport(resp *Response) string {
	var sb strings.Builder
	sb.WriteString("# Market Intelligence Report\n\n")
	sb.WriteString(fmt.Sprintf("**Search Query**: %s\n", resp.Query))

	region := resp.Region
	if region == "" {
		region = "Global"
	}
	category := resp.ProductCategory
	if category == "" {
		category = "All Categories"
	}
	sb.WriteString(fmt.Sprintf("**Region**: %s\n", region))
	sb.WriteString(fmt.Sprintf("**Product Category**: %s\n\n", category))

	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString(fmt.Sprintf("Based on web search analysis, %d relevant sources were identified for %s market analysis.\n\n",
		len(resp.Results), strings.ToLower(region)))

	byCategory := make(map[string][]Result)
	for _, r := range resp.Results {
		byCategory[r.Classification] = append(byCategory[r.Classification], r)
	}

	for _, categoryName := range []string{"Population & Households", "Society & Economy", "Science & Technology", "City & Nature"} {
		results := byCategory[categoryName]
		if len(results) == 0 {
			continue
		}
		if len(results) > 3 {
			results = results[:3]
		}

		sb.WriteString(fmt.Sprintf("## %s\n\n", categoryName))
		for i, r := range results {
			sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, r.Title))
			sb.WriteString(fmt.Sprintf("**Source**: %s\n", r.Source))
			sb.WriteString(fmt.Sprintf("**URL**: %s\n", r.URL))
			sb.WriteString(fmt.Sprintf("**Summary**: %s\n", r.Snippet))
			sb.WriteString(fmt.Sprintf("**Relevance Score**: %.2f\n", r.RelevanceScore))
			sb.WriteString(fmt.Sprintf("**Keywords**: %s\n\n", strings.Join(r.Keywords, ", ")))
		}
	}

	return sb.String()
}
