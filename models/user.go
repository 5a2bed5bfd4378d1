package models

import (
	"context"
	"errors"
	"time"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/utils"
	"gorm.io/gorm"
)

const (
	UserRoleAdmin = "A"
	UserRoleUser  = "U"
)

type Org struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	OrgId     string    `gorm:"size:64;not null;index" json:"org_id"`
	Username  string    `gorm:"size:100;not null;index:uniq_username,unique" json:"username"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Password  []byte    `gorm:"type:varbinary(255);not null" json:"-"`
	Role      string    `gorm:"size:10;not null;default:'U'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Authenticate verifies credentials and returns a signed token on success.
func Authenticate(ctx context.Context, username string, password string) (string, *User, error) {
	var user User
	db := config.GetDB()
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return "", nil, err
	}
	if err := utils.ComparePassword(string(user.Password), password); err != nil {
		return "", nil, utils.ErrorRecordNotFound
	}
	token, err := utils.JwtGenerate(user.ID, user.OrgId, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}
