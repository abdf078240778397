package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatql/internal/entity"
	"chatql/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, userId string) (entity.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", userId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.User{}, repository.ErrUserNotFound
		}
		return entity.User{}, err
	}
	return m.toEntity(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).First(&m, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.User{}, repository.ErrUserNotFound
		}
		return entity.User{}, err
	}
	return m.toEntity(), nil
}

func (r *UserRepository) Index(ctx context.Context, filter entity.UserIndexFilter) ([]entity.User, error) {
	q := r.db.WithContext(ctx).Order("username ASC")
	if len(filter.Ids) > 0 {
		q = q.Where("id IN ?", filter.Ids)
	}

	var rows []userModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]entity.User, 0, len(rows))
	for _, m := range rows {
		users = append(users, m.toEntity())
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user entity.User) (string, error) {
	now := time.Now()
	m := userModel{
		ID:            uuid.New().String(),
		Username:      user.Username,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Password:      user.Password,
		Name:          user.Name,
		Image:         user.Image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if strings.Contains(constraint, "email") {
				return "", repository.ErrEmailTaken
			}
			return "", repository.ErrUsernameTaken
		}
		return "", err
	}
	return m.ID, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
