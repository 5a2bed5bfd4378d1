// seed-admin creates or updates the admin console user (username: obariAdmin)
// together with its org. Admin users have role = 'A' and bypass org scoping.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"gorm.io/gorm"
)

const (
	adminOrgId    = "obari-hq"
	adminOrgName  = "OBARI HQ"
	adminUsername = "obariAdmin"
	adminPassword = "0b@riAdmin"
	adminName     = "OBARI Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx = utils.SetOrgIdInContext(ctx, adminOrgId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUsernameInContext(ctx, adminUsername)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipOrgScopeInContext(ctx, true)

	var org models.Org
	err := db.WithContext(ctx).Model(&models.Org{}).Where("id = ?", adminOrgId).First(&org).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup org: %v\n", err)
			os.Exit(1)
		}
		org = models.Org{ID: adminOrgId, Name: adminOrgName}
		if err := db.WithContext(ctx).Create(&org).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create org: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created org: id=%q\n", adminOrgId)
	}

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		// Create new admin user
		u := models.User{
			OrgId:    adminOrgId,
			Username: adminUsername,
			Name:     adminName,
			Password: hashed,
			Role:     models.UserRoleAdmin,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q (role=Admin)\n", adminUsername)
		return
	}

	// Update existing user: ensure password and admin role
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).Updates(map[string]any{
		"password": hashed,
		"name":     adminName,
		"org_id":   adminOrgId,
		"role":     models.UserRoleAdmin,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated admin user: username=%q (role=Admin)\n", adminUsername)
}
