package models

import "time"

// User is the registered account paying for entries. Account management is
// owned by the auth/CRUD side; only the fields needed to address a payer
// are read here.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email     string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"email"`
	Studio    string    `gorm:"type:varchar(200);default:''" json:"studio"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
