package api

import (
	"net/http"

	"GarmentStudio-server/models"

	"github.com/gin-gonic/gin"
)

// 模型用量统计（总请求数/总费用/按天历史）
func GetModelUsage(c *gin.Context) {
	usages, err := models.ListModelUsage(models.GormDB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取用量统计失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": usages})
}

// 单个模型的用量详情
func GetModelUsageByID(c *gin.Context) {
	modelID := c.Param("model_id")
	usage, err := models.GetModelUsageByID(models.GormDB, modelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "用量统计不存在: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// 删除单个模型的用量统计
func DeleteModelUsage(c *gin.Context) {
	modelID := c.Param("model_id")
	if err := models.DeleteModelUsageByID(models.GormDB, modelID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除用量统计失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model_id": modelID})
}

// 清空用量统计
func ClearModelUsage(c *gin.Context) {
	if err := models.ClearModelUsage(models.GormDB); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空用量统计失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已清空"})
}
