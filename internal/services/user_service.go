package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/santai/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserService reads and seeds login accounts.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (us *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := us.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

func (us *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := us.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// EnsureUser creates the account unless the username is already taken. It
// reports whether a row was inserted.
func (us *UserService) EnsureUser(ctx context.Context, username, password, fullName string, role models.UserRole) (bool, error) {
	if _, err := us.FindByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username: strings.TrimSpace(username),
		Password: string(hashedPassword),
		FullName: fullName,
		Role:     role,
	}
	if err := us.db.WithContext(ctx).Create(&user).Error; err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return true, nil
}

// ParseRole maps seed-file role names onto UserRole, defaulting to RoleUser.
func ParseRole(role string) models.UserRole {
	if strings.EqualFold(role, string(models.RoleAdmin)) {
		return models.RoleAdmin
	}
	return models.RoleUser
}
