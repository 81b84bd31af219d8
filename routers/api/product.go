// ...existing code...
package api

import (
	"log"
	"net/http"
	"time"

	"GarmentStudio-server/config"

	"GarmentStudio-server/models"

	"GarmentStudio-server/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 创建商品生成任务
func CreateProduct(c *gin.Context) {
	var req struct {
		RawFront    string `json:"raw_front"`
		RawBack     string `json:"raw_back"`
		Description string `json:"description"`
		Gender      string `json:"gender"`
		AgeRange    string `json:"age_range"`
		BodyType    string `json:"body_type"`
		Fit         string `json:"fit"`
		Background  string `json:"background"`
		Accessory   string `json:"accessory"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RawFront == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少正面图片 raw_front"})
		return
	}

	product := models.ProductRecord{
		ID:             uuid.NewString(),
		RawFront:       req.RawFront,
		RawBack:        req.RawBack,
		Description:    req.Description,
		Gender:         req.Gender,
		AgeRange:       req.AgeRange,
		BodyType:       req.BodyType,
		Fit:            req.Fit,
		Background:     req.Background,
		Accessory:      req.Accessory,
		OverallStatus:  models.OverallStatusRunning,
		AnalysisStatus: models.StageStatusPending,
		SeoStatus:      models.StageStatusPending,
		FrontStatus:    models.StageStatusPending,
		BackStatus:     models.StageStatusPending,
		RetryCount:     0,
		ErrorLog:       "任务已创建，等待生成...",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := models.CreateProduct(models.GormDB, &product); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建任务失败: " + err.Error()})
		return
	}

	// 入队触发立即推进；失败不致命，扫描循环会兜底
	if err := service.EnqueueGenerateProduct(product.ID); err != nil {
		log.Printf("生成任务入队失败: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": product.ID,
		"status":     product.OverallStatus,
	})
}

// 获取任务列表
func GetProducts(c *gin.Context) {
	products, err := models.ListProducts(models.GormDB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取任务列表失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// 获取任务详情
func GetProduct(c *gin.Context) {
	productID := c.Param("product_id")
	product, err := models.GetProductByID(models.GormDB, productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务未找到: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// 删除任务（执行中删除等同取消：编排器对消失的记录按 no-op 处理）
func DeleteProduct(c *gin.Context) {
	productID := c.Param("product_id")
	if err := models.DeleteProductByID(models.GormDB, productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除任务失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID})
}

// 清空全部任务
func ClearProducts(c *gin.Context) {
	if err := models.ClearProducts(models.GormDB); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空任务失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已清空"})
}

// 重试已退出的任务：failed/updating 的阶段回到 pending，整体回到 running。
// 达到最大重试次数后只能删除，不能再重试。
func RetryProduct(c *gin.Context) {
	productID := c.Param("product_id")
	product, err := models.GetProductByID(models.GormDB, productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务未找到: " + err.Error()})
		return
	}
	if product.OverallStatus != models.OverallStatusExited {
		c.JSON(http.StatusConflict, gin.H{"error": "只有已退出的任务可以重试"})
		return
	}
	if product.RetryCount >= config.AppConfig.Pipeline.MaxRetries {
		c.JSON(http.StatusConflict, gin.H{"error": "已达最大重试次数，只能删除"})
		return
	}

	product.ResetForRetry()
	if err := models.UpdateProductByID(models.GormDB, product); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重试失败: " + err.Error()})
		return
	}

	if err := service.EnqueueGenerateProduct(product.ID); err != nil {
		log.Printf("重试任务入队失败: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":  product.ID,
		"status":      product.OverallStatus,
		"retry_count": product.RetryCount,
	})
}
