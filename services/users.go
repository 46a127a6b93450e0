package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"smartcrm/models"
	"smartcrm/utils"
)

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserService manages the accounts that may call the API.
type UserService struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewUserService(db *gorm.DB, logger *logrus.Entry) *UserService {
	if logger == nil {
		logger = utils.ComponentLogger("users")
	}
	return &UserService{db: db, logger: logger}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, invalid(err)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, invalid(ErrUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: in.Username, PasswordHash: string(hash), IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid(ErrUsernameTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks the credentials and stamps the login time.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := db.Model(&user).Update("last_login", now).Error; err != nil {
		s.logger.WithError(err).Warn("Failed to record last login")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := findByID(s.db.WithContext(ctx), &user, id, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes every token issued to the user so far.
func (s *UserService) Logout(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return fmt.Errorf("revoke tokens: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("user", id)
	}
	return nil
}

// Delete removes a user. Leads assigned to them stay and lose their assignee.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lead{}).Where("assigned_to_id = ?", id).
			Update("assigned_to_id", nil).Error; err != nil {
			return fmt.Errorf("unassign leads: %w", err)
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("user", id)
		}
		return nil
	})
}
