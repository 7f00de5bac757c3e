package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/mxforum/mxforum/config"
	"github.com/mxforum/mxforum/middleware"
	"github.com/mxforum/mxforum/models"
	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

const (
	providerGitHub  = "github"
	oauthStateTTL   = 10 * time.Minute
	githubUserAPI   = "https://api.github.com/user"
	usernameMaxRune = 64
)

// AccountStore is the account persistence the auth handlers need.
type AccountStore interface {
	FindByID(ctx context.Context, id uint) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	Create(ctx context.Context, user models.User) (models.User, error)
	UpsertExternal(ctx context.Context, ext store.ExternalAccount) (models.User, error)
}

// AuthController handles local accounts and GitHub sign-in.
type AuthController struct {
	accounts AccountStore
	// userAPI is the GitHub profile endpoint; swapped out in tests.
	userAPI string
}

func NewAuthController(accounts AccountStore) *AuthController {
	return &AuthController{accounts: accounts, userAPI: githubUserAPI}
}

// Register creates a local account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64,alphanumunicode"`
		Password string `json:"password" binding:"required,min=6,max=72"`
		Nickname string `json:"nickname" binding:"max=64"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			utils.Invalid(ctx, map[string]string{"password": err.Error()})
			return
		}
		respondError(ctx, err)
		return
	}

	user, err := a.accounts.Create(ctx.Request.Context(), models.User{
		Username:     strings.TrimSpace(req.Username),
		Nickname:     utils.SanitizeText(req.Nickname),
		PasswordHash: hash,
		Provider:     "local",
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.issue(ctx, http.StatusCreated, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}

	user, err := a.accounts.FindByUsername(ctx.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(ctx, err)
		return
	}
	if err != nil || user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, utils.CodeUnauthorized+6, "invalid username or password")
		return
	}
	a.issue(ctx, http.StatusOK, user)
}

// Logout revokes the caller's token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	value, _ := ctx.Get(middleware.ContextClaimsKey)
	claims, ok := value.(*utils.Claims)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, utils.CodeUnauthorized, "unauthorized")
		return
	}
	expiresAt := time.Now().Add(utils.TokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(ctx.Request.Context(), claims.ID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	user, err := a.accounts.FindByID(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, userResponse(user))
}

// OAuthRedirect returns the GitHub authorization URL with a one-time state.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(config.Get())
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalid+1, err.Error())
		return
	}
	state := uuid.NewString()
	utils.SaveState(ctx.Request.Context(), state, oauthStateTTL)
	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the code, links or creates the account and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		utils.Invalid(ctx, map[string]string{"code": "missing code or state"})
		return
	}
	if !utils.ConsumeState(ctx.Request.Context(), state) {
		utils.Invalid(ctx, map[string]string{"state": "invalid or expired state"})
		return
	}
	cfg, err := oauthConfig(config.Get())
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalid+1, err.Error())
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalid+2, "failed to exchange code")
		return
	}
	ext, err := a.fetchGitHubUser(ctx.Request.Context(), cfg.Client(ctx.Request.Context(), token))
	if err != nil {
		utils.Sugar.Warnf("github profile fetch failed: %v", err)
		utils.Error(ctx, http.StatusBadGateway, utils.CodeInternal+2, "failed to fetch github profile")
		return
	}
	user, err := a.accounts.UpsertExternal(ctx.Request.Context(), ext)
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.issue(ctx, http.StatusOK, user)
}

func (a *AuthController) issue(ctx *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		respondError(ctx, fmt.Errorf("generate token: %w", err))
		return
	}
	utils.Respond(ctx, status, utils.CodeOK, "success", gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

func oauthConfig(cfg config.AppConfig) (*oauth2.Config, error) {
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, errors.New("github oauth not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/api/v1/auth/oauth/github/callback",
		Scopes:       []string{"read:user"},
		Endpoint:     github.Endpoint,
	}, nil
}

func (a *AuthController) fetchGitHubUser(ctx context.Context, client *http.Client) (store.ExternalAccount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userAPI, nil)
	if err != nil {
		return store.ExternalAccount{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return store.ExternalAccount{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return store.ExternalAccount{}, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return store.ExternalAccount{}, err
	}
	if payload.ID == 0 {
		return store.ExternalAccount{}, errors.New("github user info has no id")
	}
	return store.ExternalAccount{
		Provider:   providerGitHub,
		ProviderID: fmt.Sprintf("%d", payload.ID),
		Login:      payload.Login,
		Name:       truncateRunes(utils.SanitizeText(payload.Name), usernameMaxRune),
		AvatarURL:  payload.AvatarURL,
	}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func userResponse(u models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"nickname":   u.Identity().DisplayName,
		"avatar_url": u.AvatarURL,
		"provider":   u.Provider,
		"created_at": u.CreatedAt,
	}
}
