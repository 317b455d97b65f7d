package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="g"><h3>Home Appliances Market Report</h3><a href="https://example.com/report">x</a>
<span class="aCOpRe">Global market analysis with growth forecast for smart home technology.</span></div>
<div class="g"><h3>Urban Population Trends</h3><a href="https://example.com/population">x</a>
<span class="aCOpRe">Household demographic data for urban families.</span></div>
<div class="g"><h3>No link result</h3></div>
</body></html>`

func newTestSearcher(t *testing.T) (*Searcher, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	}))
	t.Cleanup(server.Close)

	s := NewSearcher(5*time.Second, 5, "")
	s.searchURL = server.URL + "/search?q="
	return s, server
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery("fridge demand", "Germany", "Refrigerators")
	assert.Contains(t, q, "fridge demand")
	assert.Contains(t, q, "market Germany")
	assert.Contains(t, q, "Refrigerators appliances")
	assert.Contains(t, q, "market forecast")

	q = buildQuery("fridge demand", "", "")
	assert.NotContains(t, q, "market  ")
	assert.Contains(t, q, "market analysis")
}

func TestSearchMarketData(t *testing.T) {
	s, _ := newTestSearcher(t)

	resp, err := s.SearchMarketData(context.Background(), "appliances", "Germany", "Refrigerators")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalResults)
	require.Len(t, resp.Results, 2)

	// 相关性高的排在前面
	first := resp.Results[0]
	assert.Equal(t, "Home Appliances Market Report", first.Title)
	assert.Equal(t, "https://example.com/report", first.URL)
	assert.Equal(t, "Google Search", first.Source)
	assert.Greater(t, first.RelevanceScore, resp.Results[1].RelevanceScore)
	assert.Contains(t, first.Keywords, "market")
}

func TestSearchMarketDataUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewSearcher(5*time.Second, 5, "")
	s.searchURL = server.URL + "/search?q="

	_, err := s.SearchMarketData(context.Background(), "appliances", "", "")
	assert.Error(t, err)
}

func TestRelevanceScore(t *testing.T) {
	high := relevanceScore(Result{
		Title:   "Panasonic smart home market report",
		Snippet: "growth forecast analysis for consumer electronics industry",
	})
	low := relevanceScore(Result{Title: "Cooking recipes", Snippet: "dinner ideas"})

	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 1.0)
	assert.Zero(t, low)
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords("Smart appliance market growth across Asia and Europe")

	assert.Contains(t, keywords, "market")
	assert.Contains(t, keywords, "appliance")
	assert.Contains(t, keywords, "asia")
	assert.Contains(t, keywords, "growth")
	assert.NotContains(t, keywords, "report")
}

func TestClassifyContent(t *testing.T) {
	cases := []struct {
		result Result
		want   string
	}{
		{Result{Title: "Urban population and household demographics"}, "Population & Households"},
		{Result{Title: "IoT innovation in digital research"}, "Science & Technology"},
		{Result{Title: "Green sustainability and climate in the city"}, "City & Nature"},
		{Result{Title: "Stock tips"}, "Society & Economy"}, // 无命中时的默认类目
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyContent(tc.result), tc.result.Title)
	}
}

func TestGenerateReport(t *testing.T) {
	resp := &Response{
		Query:  "appliance market",
		Region: "Germany",
		Results: []Result{
			{
				Title:          "Report",
				URL:            "https://example.com",
				Snippet:        "snippet",
				Source:         "Google Search",
				RelevanceScore: 0.4,
				Keywords:       []string{"market"},
				Classification: "Society & Economy",
			},
		},
	}

	report := GenerateReport(resp)
	assert.Contains(t, report, "# Market Intelligence Report")
	assert.Contains(t, report, "**Region**: Germany")
	assert.Contains(t, report, "## Society & Economy")
	assert.Contains(t, report, "https://example.com")
	assert.Contains(t, report, "0.40")
}
