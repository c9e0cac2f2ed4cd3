package main

import (
	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/routes"
	"github.com/plumehq/plume/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.Comment{},
		&models.Community{},
		&models.Like{},
		&models.SavedPost{},
		&models.Follow{},
		&models.Report{},
		&models.AdminUser{},
		&models.AdminSession{},
		&models.AdminLog{},
		&models.SiteSetting{},
	)

	if err := utils.InitStorage(cfg); err != nil {
		utils.Sugar.Fatalf("storage init failed: %v", err)
	}

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
