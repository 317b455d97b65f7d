package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mica-backend/internal/dataset"
	"mica-backend/internal/model"
	"mica-backend/internal/service"
	"mica-backend/internal/websearch"
	"mica-backend/pkg/logger"
)

// DataHandler 非对话类数据接口：数据集查询、图表配置、文档与网络检索
type DataHandler struct {
	store      *dataset.Store
	docs       *dataset.DocumentCorpus
	searcher   *websearch.Searcher
	completion *service.CompletionClient
}

func NewDataHandler(store *dataset.Store, docs *dataset.DocumentCorpus, searcher *websearch.Searcher, completion *service.CompletionClient) *DataHandler {
	return &DataHandler{
		store:      store,
		docs:       docs,
		searcher:   searcher,
		completion: completion,
	}
}

func (h *DataHandler) Summary(c *gin.Context) {
	summary, err := h.store.Summary()
	if err != nil {
		logger.Errorf("Failed to build data summary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Analyze 按地区、品类过滤三个数据集并返回明细与计数
func (h *DataHandler) Analyze(c *gin.Context) {
	filter := dataset.Filter{
		Region:   c.Query("region"),
		Category: c.Query("product_category"),
	}

	trend, err := h.store.TrendRows(filter)
	if err != nil {
		logger.Errorf("Failed to query trend rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	timeseries, err := h.store.TimeseriesRows(filter)
	if err != nil {
		logger.Errorf("Failed to query timeseries rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	intelligence, err := h.store.IntelligenceRows(dataset.Filter{Region: filter.Region})
	if err != nil {
		logger.Errorf("Failed to query intelligence rows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trend_data":        trend,
		"timeseries_data":   timeseries,
		"intelligence_data": intelligence,
		"summary": gin.H{
			"total_trend_records":        len(trend),
			"total_timeseries_records":   len(timeseries),
			"total_intelligence_records": len(intelligence),
		},
	})
}

func (h *DataHandler) Chart(c *gin.Context) {
	category := c.Query("product_category")
	title := c.DefaultQuery("title", "Home Appliances Market Analysis")
	chartType := c.DefaultQuery("chart_type", dataset.ChartStackedBar)

	config, err := h.store.EChartsConfig(category, title, chartType)
	if err != nil {
		logger.Errorf("Failed to generate chart config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, config)
}

func (h *DataHandler) Categories(c *gin.Context) {
	categories, err := h.store.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *DataHandler) Subcategories(c *gin.Context) {
	subcategories, err := h.store.Subcategories(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategories": subcategories})
}

func (h *DataHandler) Regions(c *gin.Context) {
	regions, err := h.store.Regions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

// Countries 文档语料覆盖的国家列表，供前端下拉选择
func (h *DataHandler) Countries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": h.docs.Regions()})
}

func (h *DataHandler) CategoryMapping(c *gin.Context) {
	c.JSON(http.StatusOK, h.docs.CategoryMapping())
}

func (h *DataHandler) CompetitiveAnalysis(c *gin.Context) {
	c.JSON(http.StatusOK, h.docs.CompetitiveAnalysis(c.Query("region")))
}

// WebSearch GET /data/web-search
func (h *DataHandler) WebSearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	resp, err := h.searcher.SearchMarketData(c.Request.Context(), query, c.Query("region"), c.Query("product_category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// WebSearchPost POST /web-search，请求体携带检索语句
func (h *DataHandler) WebSearchPost(c *gin.Context) {
	var req model.WebSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Input text is required"})
		return
	}

	resp, err := h.searcher.SearchMarketData(c.Request.Context(), req.Input, "", "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": resp,
		"report":  websearch.GenerateReport(resp),
	})
}

// EnhancedAnalysis 文档检索与网络检索合并为一份分析
func (h *DataHandler) EnhancedAnalysis(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	region := c.Query("region")
	productCategory := c.Query("product_category")

	docResults := h.docs.Search(query, region, 5)

	webResp, err := h.searcher.SearchMarketData(c.Request.Context(), query, region, productCategory)
	if err != nil {
		// 网络检索失败时退化为纯文档分析
		logger.Warnf("Web search unavailable for enhanced analysis: %v", err)
		webResp = &websearch.Response{Query: query, Region: region, ProductCategory: productCategory}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":      query,
		"documents":  docResults,
		"web_search": webResp,
		"analysis":   h.docs.AnalyzeMarketData(region),
		"report":     websearch.GenerateReport(webResp),
	})
}

// DirectResult 不经过模型的直接结果：图表配置加文档摘录
func (h *DataHandler) DirectResult(c *gin.Context) {
	category := c.Query("category")
	subcategory := c.Query("subcategory")
	country := c.Query("country")
	if category == "" || subcategory == "" || country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category, subcategory and country are required"})
		return
	}

	title := fmt.Sprintf("%s（%s）Market Analysis: %s", category, subcategory, country)
	config, err := h.store.EChartsConfig("", title, dataset.ChartStackedBar)
	if err != nil {
		logger.Errorf("Failed to generate direct result chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	excerpts := h.docs.Search(category, country, 3)

	c.JSON(http.StatusOK, gin.H{
		"parameters": gin.H{
			"category":    category,
			"subcategory": subcategory,
			"country":     country,
		},
		"chart":             config,
		"document_excerpts": excerpts,
	})
}

// LLMAnalysis 单次模型调用生成选型摘要，并附图表配置
func (h *DataHandler) LLMAnalysis(c *gin.Context) {
	category := c.Query("category")
	subcategory := c.Query("subcategory")
	country := c.Query("country")
	if category == "" || subcategory == "" || country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category, subcategory and country are required"})
		return
	}

	question := fmt.Sprintf(
		"Provide a market trend summary for %s (%s) in %s: historical performance, forecast outlook and key inflection points. Do not include any chart configuration.",
		category, subcategory, country)

	answer, err := h.completion.Complete(c.Request.Context(), []model.ChatMessage{
		{Role: model.RoleUser, Content: question},
	})
	if err != nil {
		logger.Errorf("LLM analysis failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	title := fmt.Sprintf("%s（%s）Market Analysis: %s", category, subcategory, country)
	config, err := h.store.EChartsConfig("", title, dataset.ChartStackedBar)
	if err != nil {
		logger.Errorf("Failed to generate analysis chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parameters": gin.H{
			"category":    category,
			"subcategory": subcategory,
			"country":     country,
		},
		"analysis": answer,
		"chart":    config,
	})
}
