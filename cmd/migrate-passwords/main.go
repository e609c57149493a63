// Migration script to hash existing passwords
// cmd/migrate-passwords/main.go
package main

import (
	"log"

	"journal-review-api/config"
	"journal-review-api/models"
	"journal-review-api/utils"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logging, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	db, err := config.OpenDB(cfg, logging)
	if err != nil {
		logging.Fatal("failed to connect to database", zap.Error(err))
	}

	// Get all users
	var users []models.User
	if err := db.Where("delete_at IS NULL").Find(&users).Error; err != nil {
		logging.Fatal("failed to fetch users", zap.Error(err))
	}

	var updated, skipped int
	for _, user := range users {
		if user.Password == "" || utils.IsBcryptHash(user.Password) {
			skipped++
			continue
		}

		hashedPassword, err := utils.HashPassword(user.Password)
		if err != nil {
			logging.Error("failed to hash password", zap.String("email", user.Email), zap.Error(err))
			continue
		}

		if err := db.Model(&user).Update("password", hashedPassword).Error; err != nil {
			logging.Error("failed to update password", zap.String("email", user.Email), zap.Error(err))
			continue
		}
		updated++
		logging.Info("password hashed", zap.String("email", user.Email))
	}

	logging.Info("password migration completed", zap.Int("updated", updated), zap.Int("skipped", skipped))
}
