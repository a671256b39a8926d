package health

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/ranked-poll-backend/internal/platform/database"
	"github.com/SlpAus/ranked-poll-backend/pkg/lifecycle"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// PerformCheck 执行一次Redis连通性检查并更新全局状态。
func PerformCheck() {
	ctx, cancel := context.WithTimeout(database.Ctx, pingTimeout)
	defer cancel()

	_, err := database.RDB.Ping(ctx).Result()
	database.UpdateRedisStatus(err == nil)
}

// StartRedisHealthCheck 启动后台的持续健康检查循环。
// 它的生命周期由传入的句柄控制，收到停机信号后立即退出。
func StartRedisHealthCheck(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("Redis健康检查器已启动。")

	for {
		if err := handle.Sleep(checkInterval); err != nil {
			fmt.Println("Redis健康检查器: 收到停机信号，退出。")
			return
		}
		PerformCheck()
	}
}
