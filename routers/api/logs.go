package api

import (
	"net/http"

	"GarmentStudio-server/models"

	"github.com/gin-gonic/gin"
)

// 错误日志列表（倒序）
func GetErrorLogs(c *gin.Context) {
	logs, err := models.ListErrorLogs(models.GormDB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取错误日志失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// 单条错误日志详情
func GetErrorLog(c *gin.Context) {
	logID := c.Param("log_id")
	entry, err := models.GetErrorLogByID(models.GormDB, logID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "错误日志不存在: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// 删除单条错误日志
func DeleteErrorLog(c *gin.Context) {
	logID := c.Param("log_id")
	if err := models.DeleteErrorLogByID(models.GormDB, logID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除错误日志失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"log_id": logID})
}

// 清空错误日志
func ClearErrorLogs(c *gin.Context) {
	if err := models.ClearErrorLogs(models.GormDB); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空错误日志失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已清空"})
}
