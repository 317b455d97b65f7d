package dataset

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDocx 生成仅含给定段落的最小 docx 文件
func writeDocx(t *testing.T, path string, paragraphs ...string) {
	t.Helper()

	var document bytes.Buffer
	document.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&document, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	document.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write(document.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func newTestCorpus(t *testing.T) *DocumentCorpus {
	t.Helper()

	dir := t.TempDir()
	indiaDir := filepath.Join(dir, "india_dataset")
	vietnamDir := filepath.Join(dir, "vietnam_dataset")
	require.NoError(t, os.MkdirAll(indiaDir, 0o755))
	require.NoError(t, os.MkdirAll(vietnamDir, 0o755))

	writeDocx(t, filepath.Join(indiaDir, "market_overview.docx"),
		"The population of urban households is growing rapidly.",
		"Smart technology adoption drives the appliance economy.")
	writeDocx(t, filepath.Join(vietnamDir, "competitive.docx"),
		"洗濯機（9-10kg）冷蔵庫（300-400L/2ドア）",
		"競合 product portfolio: Samsung and LG lead with 10-12 百万 price bands.",
		"CAGR estimates from TechSci and Euromonitor vary.")

	corpus := NewDocumentCorpus()
	require.NoError(t, corpus.Load(dir, []string{"india_dataset", "singapore_dataset", "vietnam_dataset"}))
	return corpus
}

func TestExtractDocxText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.docx")
	writeDocx(t, path, "First paragraph.", "Second paragraph.")

	text, err := extractDocxText(path)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", text)
}

func TestExtractDocxTextMissingFile(t *testing.T) {
	_, err := extractDocxText(filepath.Join(t.TempDir(), "absent.docx"))
	assert.Error(t, err)
}

func TestCorpusRegions(t *testing.T) {
	corpus := newTestCorpus(t)

	// singapore 目录不存在，被跳过；末尾追加 "全て"
	assert.Equal(t, []string{"India", "Vietnam", "全て"}, corpus.Regions())
}

func TestCorpusFacets(t *testing.T) {
	corpus := newTestCorpus(t)

	assert.Contains(t, corpus.Categories(), "冷蔵庫")
	assert.Contains(t, corpus.Subcategories(), "9-10kg")

	mapping := corpus.CategoryMapping()
	assert.Contains(t, mapping["洗濯機"], "フロントローディング")
}

func TestCorpusSearch(t *testing.T) {
	corpus := newTestCorpus(t)

	results := corpus.Search("population", "", 5)
	require.Len(t, results, 1)
	excerpt, ok := results["india_dataset/market_overview.docx"]
	require.True(t, ok)
	assert.Contains(t, excerpt, "population")

	// 地区过滤
	assert.Empty(t, corpus.Search("population", "vietnam", 5))
	assert.Empty(t, corpus.Search("nonexistent-term", "", 5))
}

func TestCorpusAnalyzeMarketData(t *testing.T) {
	corpus := newTestCorpus(t)

	analysis := corpus.AnalyzeMarketData("india")
	assert.Contains(t, analysis["Population & Households"], "population")
	assert.Contains(t, analysis["Science & Technology"], "technology")
}

func TestCompetitiveAnalysis(t *testing.T) {
	corpus := newTestCorpus(t)

	result := corpus.CompetitiveAnalysis("vietnam")

	brands, ok := result["brands"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"LG", "Samsung"}, brands)

	categories := result["categories"].(map[string][]string)
	assert.Contains(t, categories["洗濯機"], "9-10kg")
	assert.Contains(t, categories["冷蔵庫"], "300-400L/2ドア")

	prices := result["price_ranges"].([]string)
	assert.Contains(t, prices, "10-12")

	marketData := result["market_data"].(map[string]any)
	doc, ok := marketData["competitive.docx"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"TechSci", "Euromonitor"}, doc["sources"])
}

func TestCorpusSummary(t *testing.T) {
	corpus := newTestCorpus(t)

	summary := corpus.Summary()
	perRegion := summary["document_summary"].(map[string]any)
	india := perRegion["india_dataset"].(map[string]any)
	assert.Equal(t, 1, india["total_documents"])
	assert.Equal(t, []string{"market_overview.docx"}, india["document_names"])
}
