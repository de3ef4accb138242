package model

import (
	"time"

	"loanadmin/internal/domain"
)

type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Mobile    string    `gorm:"type:varchar(15);uniqueIndex;not null"`
	FullName  string    `gorm:"type:varchar(100);not null"`
	Password  string    `gorm:"type:varchar(255);not null"`
	Role      string    `gorm:"type:varchar(20);not null;default:'customer';index"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Loans []Loan `gorm:"foreignKey:CustomerID"`
}

func UserFromEntity(data *domain.User) User {
	return User{
		ID:       data.ID,
		Mobile:   data.Mobile,
		FullName: data.FullName,
		Password: data.Password,
		Role:     string(data.Role),
		Active:   data.Active,
	}
}

func UserToEntity(data User) *domain.User {
	return &domain.User{
		ID:        data.ID,
		Mobile:    data.Mobile,
		FullName:  data.FullName,
		Password:  data.Password,
		Role:      domain.NormalizeRole(data.Role),
		Active:    data.Active,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func UsersToEntity(data []User) []domain.User {
	responses := make([]domain.User, len(data))
	for i, u := range data {
		responses[i] = *UserToEntity(u)
	}

	return responses
}
