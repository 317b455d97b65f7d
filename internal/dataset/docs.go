package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"mica-backend/pkg/logger"
)

// 静态的日文类目、子类目，与文档内容对应
var documentCategories = []string{
	"冷蔵庫", "洗濯機", "ルームエアコン", "電子レンジ", "炊飯器",
	"掃除機", "ドライヤー", "アイロン", "扇風機", "加湿器", "小型キッチン家電",
}

var documentSubcategories = []string{
	"9-10kg", "7-10kg", "300-400L/2ドア", "1.0-1.5HP インバーター", "1-1.5HP",
	"中型", "大型", "小型", "フロントローディング", "トップローディング",
	"インバーター", "非インバーター", "スマート", "省エネ", "大容量",
	"コンパクト", "プレミアム", "エコノミー", "ミッドレンジ",
}

var categoryMapping = map[string][]string{
	"洗濯機":      {"9-10kg", "7-10kg", "フロントローディング", "トップローディング", "大容量", "コンパクト"},
	"冷蔵庫":      {"300-400L/2ドア", "中型", "大型", "小型", "省エネ", "スマート"},
	"ルームエアコン":  {"1.0-1.5HP インバーター", "1-1.5HP", "インバーター", "非インバーター", "省エネ"},
	"電子レンジ":    {"小型", "中型", "大型", "スマート", "省エネ"},
	"炊飯器":      {"小型", "中型", "大型", "スマート", "省エネ"},
	"掃除機":      {"小型", "中型", "大型", "スマート", "省エネ"},
	"ドライヤー":    {"小型", "中型", "大型", "スマート", "省エネ"},
	"アイロン":     {"小型", "中型", "大型", "スマート", "省エネ"},
	"扇風機":      {"小型", "中型", "大型", "スマート", "省エネ"},
	"加湿器":      {"小型", "中型", "大型", "スマート", "省エネ"},
	"小型キッチン家電": {"小型", "中型", "大型", "スマート", "省エネ"},
}

var competitiveBrands = []string{"Samsung", "LG", "Panasonic", "Daikin", "Casper", "Hitachi", "Sharp", "Toshiba"}

var (
	// 类目（子类目） 形式的表格行
	categoryPairRe = regexp.MustCompile(`([^（]+)（([^）]+)）`)

	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+[-–]\d+)\s*百万`),
		regexp.MustCompile(`(\d+[-–]\d+)\s*million`),
		regexp.MustCompile(`(\$\d+[-–]\$\d+)`),
	}

	marketSourceNames = []string{
		"TechSci", "IMARC", "Markets&Data", "GVR", "Grand View",
		"6W", "Credence", "Euromonitor", "Statista",
	}
)

// DocumentCorpus 按地区加载的 DOCX 文档语料
type DocumentCorpus struct {
	mu      sync.RWMutex
	regions []string          // 展示用地区名(首字母大写)
	docs    map[string]map[string]string // 地区目录名 -> 文件名 -> 文本
}

func NewDocumentCorpus() *DocumentCorpus {
	return &DocumentCorpus{docs: make(map[string]map[string]string)}
}

// Load 从 dataDir 下的地区目录加载所有 .docx 文档
func (c *DocumentCorpus) Load(dataDir string, regionDirs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, dir := range regionDirs {
		regionPath := filepath.Join(dataDir, dir)
		if _, err := os.Stat(regionPath); err != nil {
			continue
		}

		docs, err := loadRegionDocuments(regionPath)
		if err != nil {
			return fmt.Errorf("load region %s: %w", dir, err)
		}

		c.docs[dir] = docs
		c.regions = append(c.regions, regionDisplayName(dir))
	}

	logger.Infof("Document corpus loaded: %d regions", len(c.regions))
	return nil
}

func loadRegionDocuments(regionPath string) (map[string]string, error) {
	entries, err := os.ReadDir(regionPath)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".docx") {
			continue
		}

		text, err := extractDocxText(filepath.Join(regionPath, entry.Name()))
		if err != nil {
			logger.Warnf("Failed to process document %s: %v", entry.Name(), err)
			continue
		}
		docs[entry.Name()] = text
	}
	return docs, nil
}

// regionDisplayName india_dataset -> India
func regionDisplayName(dir string) string {
	name := strings.TrimSuffix(dir, "_dataset")
	if name == "" {
		return dir
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Regions 可选地区列表，末尾附加 "全て"
func (c *DocumentCorpus) Regions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(append([]string{}, c.regions...), "全て")
}

func (c *DocumentCorpus) Categories() []string {
	return append([]string{}, documentCategories...)
}

func (c *DocumentCorpus) Subcategories() []string {
	return append([]string{}, documentSubcategories...)
}

func (c *DocumentCorpus) CategoryMapping() map[string][]string {
	mapping := make(map[string][]string, len(categoryMapping))
	for k, v := range categoryMapping {
		mapping[k] = append([]string{}, v...)
	}
	return mapping
}

// Search 在文档中做子串匹配，返回 地区/文件名 -> 上下文摘录
func (c *DocumentCorpus) Search(query, region string, limit int) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	queryLower := strings.ToLower(query)
	results := make(map[string]string)

	for _, regionName := range sortedKeys(c.docs) {
		if region != "" && !strings.Contains(strings.ToLower(regionName), strings.ToLower(region)) {
			continue
		}

		docs := c.docs[regionName]
		for _, docName := range sortedKeys(docs) {
			content := docs[docName]
			if !strings.Contains(strings.ToLower(content), queryLower) {
				continue
			}

			results[regionName+"/"+docName] = extractContext(content, queryLower, 200)
			if len(results) >= limit {
				return results
			}
		}
	}

	return results
}

// extractContext 截取命中位置前后各 contextLen/2 个字节的摘录
func extractContext(content, queryLower string, contextLen int) string {
	pos := strings.Index(strings.ToLower(content), queryLower)
	if pos == -1 {
		if len(content) > contextLen {
			return content[:contextLen] + "..."
		}
		return content + "..."
	}

	start := pos - contextLen/2
	if start < 0 {
		start = 0
	}
	end := pos + len(queryLower) + contextLen/2
	if end > len(content) {
		end = len(content)
	}
	return content[start:end] + "..."
}

// RegionDocuments 返回某个地区的全部文档
func (c *DocumentCorpus) RegionDocuments(region string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.regionDocumentsLocked(region)
}

func (c *DocumentCorpus) regionDocumentsLocked(region string) map[string]string {
	if region == "" || region == "全て" {
		merged := make(map[string]string)
		for _, docs := range c.docs {
			for name, content := range docs {
				merged[name] = content
			}
		}
		return merged
	}

	key := strings.ToLower(region) + "_dataset"
	docs := make(map[string]string, len(c.docs[key]))
	for name, content := range c.docs[key] {
		docs[name] = content
	}
	return docs
}

// Summary 文档语料概览
func (c *DocumentCorpus) Summary() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	perRegion := make(map[string]any, len(c.docs))
	for region, docs := range c.docs {
		var totalLen int
		names := make([]string, 0, len(docs))
		for name, content := range docs {
			names = append(names, name)
			totalLen += len(content)
		}
		sort.Strings(names)
		perRegion[region] = map[string]any{
			"total_documents":      len(docs),
			"document_names":       names,
			"total_content_length": totalLen,
		}
	}

	return map[string]any{
		"regions":          append([]string{}, c.regions...),
		"categories":       c.Categories(),
		"subcategories":    c.Subcategories(),
		"document_summary": perRegion,
	}
}

// AnalyzeMarketData 按关键词桶归纳文档内容
func (c *DocumentCorpus) AnalyzeMarketData(region string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := c.regionDocumentsLocked(region)
	return map[string]string{
		"Population & Households": extractKeyData(docs, []string{"population", "household", "demographic", "family"}),
		"Society & Economy":       extractKeyData(docs, []string{"economy", "society", "social", "economic", "gdp", "income"}),
		"Science & Technology":    extractKeyData(docs, []string{"technology", "innovation", "digital", "smart", "iot", "ai"}),
		"City & Nature":           extractKeyData(docs, []string{"city", "urban", "nature", "environment", "sustainability", "green"}),
	}
}

// extractKeyData 每篇文档取第一个命中关键词的句子，最多三句
func extractKeyData(docs map[string]string, keywords []string) string {
	var relevant []string

	for _, docName := range sortedKeys(docs) {
		content := docs[docName]
		contentLower := strings.ToLower(content)
	keywordLoop:
		for _, keyword := range keywords {
			if !strings.Contains(contentLower, keyword) {
				continue
			}
			for _, sentence := range strings.Split(content, ".") {
				if strings.Contains(strings.ToLower(sentence), keyword) {
					relevant = append(relevant, strings.TrimSpace(sentence))
					break keywordLoop
				}
			}
		}
	}

	if len(relevant) > 3 {
		relevant = relevant[:3]
	}
	return strings.Join(relevant, ". ")
}

// CompetitiveAnalysis 从文档中抽取品牌、价格带、类目组合等竞争情报
func (c *DocumentCorpus) CompetitiveAnalysis(region string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := c.regionDocumentsLocked(region)

	categories := make(map[string][]string)
	brandSet := make(map[string]bool)
	priceSet := make(map[string]bool)
	marketData := make(map[string]any)

	for _, docName := range sortedKeys(docs) {
		content := docs[docName]
		contentLower := strings.ToLower(content)

		if strings.Contains(content, "競合") || strings.Contains(contentLower, "competitive") ||
			strings.Contains(contentLower, "portfolio") {
			for _, match := range categoryPairRe.FindAllStringSubmatch(content, -1) {
				category := strings.TrimSpace(match[1])
				subcategory := strings.TrimSpace(match[2])
				if !contains(categories[category], subcategory) {
					categories[category] = append(categories[category], subcategory)
				}
			}

			for _, brand := range competitiveBrands {
				if strings.Contains(content, brand) {
					brandSet[brand] = true
				}
			}

			for _, re := range pricePatterns {
				for _, match := range re.FindAllStringSubmatch(content, -1) {
					priceSet[match[1]] = true
				}
			}
		}

		if strings.Contains(content, "CAGR") || strings.Contains(content, "市場規模") ||
			strings.Contains(content, "TAM") {
			if sources := extractMarketSources(content); len(sources) > 0 {
				marketData[docName] = map[string]any{"sources": sources}
			}
		}
	}

	return map[string]any{
		"categories":   categories,
		"brands":       sortedSet(brandSet),
		"price_ranges": sortedSet(priceSet),
		"market_data":  marketData,
	}
}

func extractMarketSources(content string) []string {
	var sources []string
	for _, source := range marketSourceNames {
		if strings.Contains(content, source) {
			sources = append(sources, source)
		}
	}
	return sources
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
