package dataset

import (
	"fmt"
	"sort"
)

// 标准地区及配色，与前端图例保持一致
var standardRegions = []string{"North America", "Europe", "Asia Pacific", "Latin America", "MEA"}

var regionColors = map[string]string{
	"North America": "#4A90E2",
	"Europe":        "#7ED321",
	"Asia Pacific":  "#F5A623",
	"Latin America": "#D0021B",
	"MEA":           "#9013FE",
}

// 国家归并到标准地区；未命中的进 Other（不出现在图上）
var regionMapping = map[string]string{
	"USA": "North America", "Canada": "North America",
	"Germany": "Europe", "France": "Europe", "United Kingdom": "Europe",
	"Italy": "Europe", "Spain": "Europe", "Netherlands": "Europe",
	"Sweden": "Europe", "Norway": "Europe", "Denmark": "Europe",
	"Finland": "Europe", "Austria": "Europe", "Belgium": "Europe",
	"Switzerland": "Europe", "Poland": "Europe", "Czech Republic": "Europe",
	"Hungary": "Europe", "Greece": "Europe", "Portugal": "Europe",
	"Ireland": "Europe", "Luxembourg": "Europe",
	"China": "Asia Pacific", "Japan": "Asia Pacific", "South Korea": "Asia Pacific",
	"India": "Asia Pacific", "Australia": "Asia Pacific", "Singapore": "Asia Pacific",
	"Thailand": "Asia Pacific", "Malaysia": "Asia Pacific", "Indonesia": "Asia Pacific",
	"Philippines": "Asia Pacific", "Vietnam": "Asia Pacific", "Taiwan": "Asia Pacific",
	"Brazil": "Latin America", "Mexico": "Latin America", "Argentina": "Latin America",
	"Chile": "Latin America", "Colombia": "Latin America", "Peru": "Latin America",
	"UAE": "MEA", "Saudi Arabia": "MEA", "South Africa": "MEA",
	"Egypt": "MEA", "Turkey": "MEA", "Israel": "MEA",
}

const (
	ChartStackedBar        = "stacked_bar"
	ChartLine              = "line"
	ChartGroupedBar        = "grouped_bar"
	ChartPercentageStacked = "percentage_stacked"
)

// ChartData 按年份、标准地区聚合后的图表数据
type ChartData struct {
	Years   []string             `json:"years"`
	Regions []string             `json:"regions"`
	Values  map[string][]float64 `json:"values"` // 地区 -> 按年份顺序的市场规模
	Totals  []float64            `json:"total_market_values"`
}

// StackedBarData 按类目聚合 2018-2030 各地区市场规模
func (s *Store) StackedBarData(category string) (*ChartData, error) {
	query := `SELECT year, region, SUM(market_value_usd_billions)
        FROM market_trend WHERE year BETWEEN 2018 AND 2030`
	var args []any
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " GROUP BY year, region"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// (年份, 标准地区) -> 合计
	byYear := make(map[int]map[string]float64)
	for rows.Next() {
		var year int
		var region string
		var value float64
		if err := rows.Scan(&year, &region, &value); err != nil {
			return nil, err
		}

		std, ok := regionMapping[region]
		if !ok {
			if contains(standardRegions, region) {
				std = region
			} else {
				continue
			}
		}

		if byYear[year] == nil {
			byYear[year] = make(map[string]float64)
		}
		byYear[year][std] += value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byYear) == 0 {
		return nil, fmt.Errorf("no market trend data for category %q", category)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	data := &ChartData{
		Regions: standardRegions,
		Values:  make(map[string][]float64, len(standardRegions)),
	}
	for _, y := range years {
		data.Years = append(data.Years, fmt.Sprintf("%d", y))
		var total float64
		for _, region := range standardRegions {
			v := byYear[y][region]
			data.Values[region] = append(data.Values[region], v)
			total += v
		}
		data.Totals = append(data.Totals, total)
	}

	return data, nil
}

// EChartsConfig 生成完整的 ECharts 配置
func (s *Store) EChartsConfig(category, title, chartType string) (map[string]any, error) {
	if title == "" {
		title = "Home Appliances Market Analysis"
	}
	if chartType == "" {
		chartType = ChartStackedBar
	}

	data, err := s.StackedBarData(category)
	if err != nil {
		return nil, err
	}

	series := make([]map[string]any, 0, len(data.Regions))
	for _, region := range data.Regions {
		entry := map[string]any{
			"name":      region,
			"data":      seriesValues(data, region, chartType),
			"itemStyle": map[string]any{"color": regionColors[region]},
		}

		switch chartType {
		case ChartLine:
			entry["type"] = "line"
			entry["smooth"] = true
		case ChartGroupedBar:
			entry["type"] = "bar"
		default: // stacked_bar / percentage_stacked
			entry["type"] = "bar"
			entry["stack"] = "total"
		}

		series = append(series, entry)
	}

	yAxis := map[string]any{
		"type":      "value",
		"name":      "Market Size (US$B)",
		"axisLabel": map[string]any{"formatter": "${value}B"},
	}
	if chartType == ChartPercentageStacked {
		yAxis["name"] = "Market Share (%)"
		yAxis["max"] = 100
		yAxis["axisLabel"] = map[string]any{"formatter": "{value}%"}
	}

	config := map[string]any{
		"title": map[string]any{
			"text":    title,
			"subtext": fmt.Sprintf("Market Size by Region, %s-%s", data.Years[0], data.Years[len(data.Years)-1]),
			"left":    "center",
		},
		"tooltip": map[string]any{
			"trigger":     "axis",
			"axisPointer": map[string]any{"type": "shadow"},
		},
		"legend": map[string]any{"data": data.Regions, "bottom": "0%"},
		"grid": map[string]any{
			"left": "3%", "right": "4%", "bottom": "15%", "top": "15%", "containLabel": true,
		},
		"xAxis":  map[string]any{"type": "category", "data": data.Years},
		"yAxis":  yAxis,
		"series": series,
	}

	return map[string]any{"chartConfig": config}, nil
}

// seriesValues 百分比堆叠时把各地区数值换算成占比
func seriesValues(data *ChartData, region, chartType string) []float64 {
	values := data.Values[region]
	if chartType != ChartPercentageStacked {
		return values
	}

	percents := make([]float64, len(values))
	for i, v := range values {
		if data.Totals[i] > 0 {
			percents[i] = round1(v / data.Totals[i] * 100)
		}
	}
	return percents
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
