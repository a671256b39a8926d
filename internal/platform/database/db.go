package database

import (
	"fmt"
	"log"
	"os"

	"github.com/SlpAus/ranked-poll-backend/internal/platform/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的GORM实例，用于已结束投票间的归档存储
var DB *gorm.DB

// InitDB 初始化归档数据库连接。
// 单机部署用SQLite即可，多实例部署时可切换到Postgres。
func InitDB(cfg config.ArchiveConfig) {
	var err error

	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 在生产环境中可以设为Silent
			Colorful:      true,
		},
	)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		panic(fmt.Sprintf("不支持的归档数据库驱动: %s", cfg.Driver))
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})

	if err != nil {
		fmt.Println("连接归档数据库失败", err)
		panic(err)
	}

	fmt.Println("归档数据库连接成功！")
}
