package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/mxforum/mxforum/models"
)

// Users serves identity lookups for the discussion core and account
// persistence for the auth handlers.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Get returns the public identity of a user.
func (u *Users) Get(ctx context.Context, id uint) (models.Identity, error) {
	var user models.User
	err := u.db.WithContext(ctx).
		Select("id", "username", "nickname").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return models.Identity{}, notFound(err)
	}
	return user.Identity(), nil
}

// Exists reports whether the user is present and not soft-deleted.
func (u *Users) Exists(ctx context.Context, id uint) (bool, error) {
	return u.existsTx(u.db.WithContext(ctx), id)
}

func (u *Users) existsTx(tx *gorm.DB, id uint) (bool, error) {
	var n int64
	if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByID loads the full account row.
func (u *Users) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

// FindByUsername loads the account used for password login.
func (u *Users) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

// Create inserts a local account; a taken username is a validation failure.
func (u *Users) Create(ctx context.Context, user models.User) (models.User, error) {
	user.ID = 0
	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return models.User{}, Invalid("username", "username already exists")
		}
		return models.User{}, err
	}
	return user, nil
}

// ExternalAccount is what an OAuth provider tells us about a user.
type ExternalAccount struct {
	Provider   string
	ProviderID string
	Login      string
	Name       string
	AvatarURL  string
}

// UpsertExternal returns the account linked to the provider identity,
// creating it with a free username derived from the login on first sight.
func (u *Users) UpsertExternal(ctx context.Context, ext ExternalAccount) (models.User, error) {
	db := u.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", ext.Provider, ext.ProviderID).First(&user).Error
	if err == nil {
		if ext.AvatarURL != "" && ext.AvatarURL != user.AvatarURL {
			if err := db.Model(&user).Update("avatar_url", ext.AvatarURL).Error; err != nil {
				return models.User{}, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, err
	}

	base := usernameBase(ext.Login)
	if base == "" {
		base = usernameBase(ext.Provider + "_" + ext.ProviderID)
	}
	for i := 0; i < 20; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", base, i)
		}
		user = models.User{
			Username:   candidate,
			Nickname:   ext.Name,
			Provider:   ext.Provider,
			ProviderID: ext.ProviderID,
			AvatarURL:  ext.AvatarURL,
		}
		err = db.Create(&user).Error
		if err == nil {
			return user, nil
		}
		if !isDuplicate(err) {
			return models.User{}, err
		}
	}
	return models.User{}, fmt.Errorf("no free username for %s account %s: %w", ext.Provider, ext.ProviderID, err)
}

var usernameStrip = regexp.MustCompile(`[^a-z0-9_]+`)

func usernameBase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", ".", "_").Replace(s)
	s = strings.Trim(usernameStrip.ReplaceAllString(s, ""), "_")
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}
