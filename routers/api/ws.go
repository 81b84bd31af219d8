package api

import (
	"net/http"
	"time"

	"GarmentStudio-server/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 任务进度 WebSocket 推送（以数据库为来源：先读取 DB 推一次，然后轮询 DB，
// 状态有变化才推送）。多个打开的页面各自订阅，保持展示一致。
func ProductProgressWebSocket(c *gin.Context) {
	productID := c.Param("product_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WebSocket升级失败"})
		return
	}
	defer conn.Close()

	// 先推当前状态
	product, err := models.GetProductByID(models.GormDB, productID)
	if err != nil {
		conn.WriteJSON(map[string]interface{}{"error": "product not found: " + err.Error()})
		return
	}
	_ = conn.WriteJSON(product)
	if product.IsTerminal() {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prev := statusSnapshot(product)

	for range ticker.C {
		cur, err := models.GetProductByID(models.GormDB, productID)
		if err != nil {
			// 记录被删除或查询失败，通知后断开
			_ = conn.WriteJSON(map[string]interface{}{"error": "product deleted"})
			break
		}

		// 终态必然改变快照，所以变化分支已经把最终状态推送过一次，
		// 这里只负责断开，不再重复推送
		if snap := statusSnapshot(cur); snap != prev {
			if err := conn.WriteJSON(cur); err != nil {
				break
			}
			prev = snap
		}

		if cur.IsTerminal() {
			break
		}
	}
}

// statusSnapshot 用于变化检测的状态元组
func statusSnapshot(p *models.ProductRecord) [6]string {
	return [6]string{
		p.OverallStatus,
		p.AnalysisStatus,
		p.SeoStatus,
		p.FrontStatus,
		p.BackStatus,
		p.ErrorLog,
	}
}
