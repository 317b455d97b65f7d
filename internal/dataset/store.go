package dataset

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mica-backend/pkg/logger"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// 三份 CSV 数据集的文件名，与原始数据导出保持一致
const (
	intelligenceFile = "market_intelligence_2015_2028.csv"
	trendFile        = "market_trend_product_country_2015_2028.csv"
	timeseriesFile   = "timeseries_subcategory_region_2015_2035.csv"
)

type IntelligenceRecord struct {
	Region            string  `json:"region"`
	Year              int     `json:"year"`
	ConsumerAffinity  float64 `json:"consumer_affinity_score"`
	OnlineSearchIndex float64 `json:"online_search_index"`
	AdEffectiveness   float64 `json:"ecommerce_ad_effectiveness"`
	SocialSentiment   float64 `json:"social_media_sentiment"`
}

type TrendRecord struct {
	Region         string  `json:"region"`
	Category       string  `json:"category"`
	SubCategory    string  `json:"sub_category"`
	Year           int     `json:"year"`
	MarketSizeUnit float64 `json:"market_size_units_millions"`
	MarketValueUSD float64 `json:"market_value_usd_billions"`
	YoYGrowth      float64 `json:"yoy_growth_rate"`
	CAGRForecast   float64 `json:"cagr_forecast"`
	KeyDrivers     string  `json:"key_drivers"`
}

type TimeseriesRecord struct {
	Region      string  `json:"region"`
	Category    string  `json:"category"`
	SubCategory string  `json:"sub_category"`
	Year        int     `json:"year"`
	UnitsSold   float64 `json:"units_sold_millions"`
	ASP         float64 `json:"asp_usd"`
}

// Filter 数据筛选条件，零值字段不参与过滤
type Filter struct {
	Region      string
	Category    string
	SubCategory string
	Year        int
}

// Store 市场数据仓库：CSV 导入内存 SQLite，之后全部用 SQL 查询
type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 内存库每个连接各自独立，必须收敛到单连接
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err = s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS market_intelligence (
        region TEXT NOT NULL,
        year INTEGER NOT NULL,
        consumer_affinity_score REAL,
        online_search_index REAL,
        ecommerce_ad_effectiveness REAL,
        social_media_sentiment REAL
    );

    CREATE TABLE IF NOT EXISTS market_trend (
        region TEXT NOT NULL,
        category TEXT NOT NULL,
        sub_category TEXT,
        year INTEGER NOT NULL,
        market_size_units_millions REAL,
        market_value_usd_billions REAL,
        yoy_growth_rate REAL,
        cagr_forecast REAL,
        key_drivers TEXT
    );

    CREATE TABLE IF NOT EXISTS timeseries (
        region TEXT NOT NULL,
        category TEXT NOT NULL,
        sub_category TEXT,
        year INTEGER NOT NULL,
        units_sold_millions REAL,
        asp_usd REAL
    );

    CREATE INDEX IF NOT EXISTS idx_trend_region ON market_trend (region);
    CREATE INDEX IF NOT EXISTS idx_trend_category ON market_trend (category);
    CREATE INDEX IF NOT EXISTS idx_ts_region ON timeseries (region);
    `
	_, err := s.db.Exec(schema)
	return err
}

// LoadAll 把数据目录下的三份 CSV 全部导入
func (s *Store) LoadAll(dataDir string) error {
	files := []struct {
		name   string
		ingest func(headers []string, rows [][]string) error
	}{
		{intelligenceFile, s.ingestIntelligence},
		{trendFile, s.ingestTrend},
		{timeseriesFile, s.ingestTimeseries},
	}

	for _, f := range files {
		headers, rows, err := readCSV(filepath.Join(dataDir, f.name))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", f.name, err)
		}
		if err := f.ingest(headers, rows); err != nil {
			return fmt.Errorf("failed to ingest %s: %w", f.name, err)
		}
		logger.Infof("Loaded %d rows from %s", len(rows), f.name)
	}

	return nil
}

func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv: %s", path)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = standardizeColumn(h)
	}

	return headers, records[1:], nil
}

var nonWordRe = regexp.MustCompile(`[^\w]+`)
var underscoreRe = regexp.MustCompile(`_+`)

// standardizeColumn 列名规范化：小写、空白和特殊字符折叠为下划线
func standardizeColumn(col string) string {
	c := strings.ToLower(strings.TrimSpace(col))
	c = nonWordRe.ReplaceAllString(c, "_")
	c = underscoreRe.ReplaceAllString(c, "_")
	return strings.Trim(c, "_")
}

// splitCategory 拆分 "Category – Subcategory" 形式的组合列
func splitCategory(value string) (string, string) {
	for _, sep := range []string{" – ", " - ", "–", "-"} {
		if strings.Contains(value, sep) {
			parts := strings.SplitN(value, sep, 2)
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(value), ""
}

// rowReader 按规范化后的列名取值，带别名兜底
type rowReader struct {
	index map[string]int
	row   []string
}

func newRowIndex(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	return index
}

func (r rowReader) str(names ...string) string {
	for _, n := range names {
		if i, ok := r.index[n]; ok && i < len(r.row) {
			return strings.TrimSpace(r.row[i])
		}
	}
	return ""
}

func (r rowReader) num(names ...string) float64 {
	v := r.str(names...)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}

func (r rowReader) year() int {
	return int(r.num("year"))
}

func (s *Store) ingestIntelligence(headers []string, rows [][]string) error {
	index := newRowIndex(headers)
	stmt, err := s.db.Prepare(`INSERT INTO market_intelligence
        (region, year, consumer_affinity_score, online_search_index, ecommerce_ad_effectiveness, social_media_sentiment)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		r := rowReader{index: index, row: row}
		region := r.str("region", "country")
		if region == "" {
			continue
		}
		_, err := stmt.Exec(region, r.year(),
			r.num("consumer_affinity_score", "consumer_affinity_score_1_10"),
			r.num("online_search_index", "online_search_index_100_2015"),
			r.num("ecommerce_ad_effectiveness", "e_commerce_ad_spend_effectiveness"),
			r.num("social_media_sentiment", "social_media_sentiment_positive"))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ingestTrend(headers []string, rows [][]string) error {
	index := newRowIndex(headers)
	stmt, err := s.db.Prepare(`INSERT INTO market_trend
        (region, category, sub_category, year, market_size_units_millions, market_value_usd_billions, yoy_growth_rate, cagr_forecast, key_drivers)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		r := rowReader{index: index, row: row}
		region := r.str("region", "country")
		if region == "" {
			continue
		}

		category := r.str("category")
		subCategory := r.str("sub_category")
		if category == "" {
			// 组合列形式：Product Category 中带 "类目 – 子类目"
			category, subCategory = splitCategory(r.str("product_category", "product"))
		}

		_, err := stmt.Exec(region, category, subCategory, r.year(),
			r.num("market_size_units_millions", "market_size_millions_of_units"),
			r.num("market_value_usd_billions", "market_value_billion_usd"),
			r.num("yoy_growth_rate", "yoy_growth_rate_percent"),
			r.num("cagr_forecast", "5_year_cagr_forecast", "cagr_forecast_percent"),
			r.str("key_drivers"))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ingestTimeseries(headers []string, rows [][]string) error {
	index := newRowIndex(headers)
	stmt, err := s.db.Prepare(`INSERT INTO timeseries
        (region, category, sub_category, year, units_sold_millions, asp_usd)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		r := rowReader{index: index, row: row}
		region := r.str("region", "country")
		if region == "" {
			continue
		}

		category := r.str("category")
		subCategory := r.str("sub_category")
		if category == "" {
			category, subCategory = splitCategory(r.str("product_category", "product"))
		}

		units := r.num("units_sold_millions", "actual_units_sold_millions")
		if units == 0 {
			units = r.num("forecast_units_sold_millions")
		}

		_, err := stmt.Exec(region, category, subCategory, r.year(),
			units, r.num("asp_usd", "asp", "average_selling_price_usd"))
		if err != nil {
			return err
		}
	}
	return nil
}

// ---- 查询 ----

func (s *Store) distinct(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v != "" {
			values = append(values, v)
		}
	}
	return values, rows.Err()
}

// Regions 三份数据集中出现过的全部地区
func (s *Store) Regions() ([]string, error) {
	return s.distinct(`
        SELECT DISTINCT region FROM market_intelligence
        UNION SELECT DISTINCT region FROM market_trend
        UNION SELECT DISTINCT region FROM timeseries
        ORDER BY region`)
}

func (s *Store) Categories() ([]string, error) {
	return s.distinct(`
        SELECT DISTINCT category FROM market_trend
        UNION SELECT DISTINCT category FROM timeseries
        ORDER BY category`)
}

// Subcategories 指定类目的子类目；category 为空时返回全部
func (s *Store) Subcategories(category string) ([]string, error) {
	if category != "" {
		return s.distinct(`
            SELECT DISTINCT sub_category FROM market_trend WHERE category = ? AND sub_category != ''
            UNION SELECT DISTINCT sub_category FROM timeseries WHERE category = ? AND sub_category != ''
            ORDER BY sub_category`, category, category)
	}
	return s.distinct(`
        SELECT DISTINCT sub_category FROM market_trend WHERE sub_category != ''
        UNION SELECT DISTINCT sub_category FROM timeseries WHERE sub_category != ''
        ORDER BY sub_category`)
}

func (s *Store) IntelligenceRows(f Filter) ([]IntelligenceRecord, error) {
	query := `SELECT region, year, consumer_affinity_score, online_search_index,
        ecommerce_ad_effectiveness, social_media_sentiment FROM market_intelligence WHERE 1=1`
	var args []any
	if f.Region != "" {
		query += " AND region = ?"
		args = append(args, f.Region)
	}
	if f.Year != 0 {
		query += " AND year = ?"
		args = append(args, f.Year)
	}
	query += " ORDER BY region, year"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []IntelligenceRecord
	for rows.Next() {
		var rec IntelligenceRecord
		if err := rows.Scan(&rec.Region, &rec.Year, &rec.ConsumerAffinity,
			&rec.OnlineSearchIndex, &rec.AdEffectiveness, &rec.SocialSentiment); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) TrendRows(f Filter) ([]TrendRecord, error) {
	query := `SELECT region, category, sub_category, year, market_size_units_millions,
        market_value_usd_billions, yoy_growth_rate, cagr_forecast, key_drivers FROM market_trend WHERE 1=1`
	query, args := applyFilter(query, f)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TrendRecord
	for rows.Next() {
		var rec TrendRecord
		if err := rows.Scan(&rec.Region, &rec.Category, &rec.SubCategory, &rec.Year,
			&rec.MarketSizeUnit, &rec.MarketValueUSD, &rec.YoYGrowth, &rec.CAGRForecast, &rec.KeyDrivers); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) TimeseriesRows(f Filter) ([]TimeseriesRecord, error) {
	query := `SELECT region, category, sub_category, year, units_sold_millions, asp_usd FROM timeseries WHERE 1=1`
	query, args := applyFilter(query, f)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TimeseriesRecord
	for rows.Next() {
		var rec TimeseriesRecord
		if err := rows.Scan(&rec.Region, &rec.Category, &rec.SubCategory, &rec.Year,
			&rec.UnitsSold, &rec.ASP); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func applyFilter(query string, f Filter) (string, []any) {
	var args []any
	if f.Region != "" {
		query += " AND region = ?"
		args = append(args, f.Region)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.SubCategory != "" {
		query += " AND sub_category = ?"
		args = append(args, f.SubCategory)
	}
	if f.Year != 0 {
		query += " AND year = ?"
		args = append(args, f.Year)
	}
	return query + " ORDER BY year", args
}

// Summary 各数据集的规模概览
func (s *Store) Summary() (map[string]any, error) {
	summary := make(map[string]any)

	type datasetMeta struct {
		table      string
		hasProduct bool
	}
	metas := map[string]datasetMeta{
		"market_intelligence": {"market_intelligence", false},
		"market_trend":        {"market_trend", true},
		"timeseries":          {"timeseries", true},
	}

	for name, meta := range metas {
		var total int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + meta.table).Scan(&total); err != nil {
			return nil, err
		}

		years, err := s.distinct("SELECT DISTINCT CAST(year AS TEXT) FROM " + meta.table + " ORDER BY year")
		if err != nil {
			return nil, err
		}
		regions, err := s.distinct("SELECT DISTINCT region FROM " + meta.table + " ORDER BY region")
		if err != nil {
			return nil, err
		}

		entry := map[string]any{
			"total_records": total,
			"years":         years,
			"regions":       regions,
		}

		if meta.hasProduct {
			categories, err := s.distinct("SELECT DISTINCT category FROM " + meta.table + " ORDER BY category")
			if err != nil {
				return nil, err
			}
			subcategories, err := s.distinct("SELECT DISTINCT sub_category FROM " + meta.table + " WHERE sub_category != '' ORDER BY sub_category")
			if err != nil {
				return nil, err
			}
			entry["product_categories"] = categories
			entry["subcategories"] = subcategories
		}

		summary[name] = entry
	}

	return summary, nil
}

// Search 按关键词在三份数据集中做模糊匹配，返回数据集名到文本摘录的映射
func (s *Store) Search(query string, limit int) (map[string]string, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(query) + "%"
	results := make(map[string]string)

	intel, err := s.intelligenceSearch(pattern, limit)
	if err != nil {
		return nil, err
	}
	if intel != "" {
		results["market_intelligence"] = intel
	}

	trend, err := s.trendSearch(pattern, limit)
	if err != nil {
		return nil, err
	}
	if trend != "" {
		results["market_trend"] = trend
	}

	ts, err := s.timeseriesSearch(pattern, limit)
	if err != nil {
		return nil, err
	}
	if ts != "" {
		results["timeseries"] = ts
	}

	return results, nil
}

func (s *Store) intelligenceSearch(pattern string, limit int) (string, error) {
	rows, err := s.db.Query(`SELECT region, year, consumer_affinity_score, social_media_sentiment
        FROM market_intelligence WHERE LOWER(region) LIKE ? ORDER BY year LIMIT ?`, pattern, limit)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var region string
		var year int
		var affinity, sentiment float64
		if err := rows.Scan(&region, &year, &affinity, &sentiment); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s %d: affinity %.1f, sentiment %.1f%%\n", region, year, affinity, sentiment)
	}
	return b.String(), rows.Err()
}

func (s *Store) trendSearch(pattern string, limit int) (string, error) {
	rows, err := s.db.Query(`SELECT region, category, sub_category, year, market_value_usd_billions, yoy_growth_rate
        FROM market_trend
        WHERE LOWER(region) LIKE ? OR LOWER(category) LIKE ? OR LOWER(sub_category) LIKE ?
        ORDER BY year LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var region, category, sub string
		var year int
		var value, growth float64
		if err := rows.Scan(&region, &category, &sub, &year, &value, &growth); err != nil {
			return "", err
		}
		if sub != "" {
			category = category + " / " + sub
		}
		fmt.Fprintf(&b, "%s %s %d: US$%.2fB, YoY %.1f%%\n", region, category, year, value, growth)
	}
	return b.String(), rows.Err()
}

func (s *Store) timeseriesSearch(pattern string, limit int) (string, error) {
	rows, err := s.db.Query(`SELECT region, category, year, units_sold_millions, asp_usd
        FROM timeseries
        WHERE LOWER(region) LIKE ? OR LOWER(category) LIKE ? OR LOWER(sub_category) LIKE ?
        ORDER BY year LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var region, category string
		var year int
		var units, asp float64
		if err := rows.Scan(&region, &category, &year, &units, &asp); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s %s %d: %.1fM units, ASP US$%.0f\n", region, category, year, units, asp)
	}
	return b.String(), rows.Err()
}
