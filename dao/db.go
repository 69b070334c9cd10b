package dao

import (
	"fmt"

	"erp-knowledge-backend/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}
	DB = db
	return Migrate()
}

func Migrate() error {
	return DB.AutoMigrate(
		&model.User{},
		&model.Collection{},
		&model.Resource{},
		&model.ResourceLog{},
		&model.Chunk{},
		&model.Glossary{},
		&model.GlossaryTerm{},
		&model.Attachment{},
	)
}
