package controllers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mxforum/mxforum/models"
	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

const (
	groupListCachePrefix   = "cache:groups:list:"
	groupDetailCachePrefix = "cache:groups:detail:"
)

type GroupStore interface {
	ListGroups(ctx context.Context, f store.GroupFilter) ([]store.GroupView, error)
	GetGroup(ctx context.Context, id uint) (store.GroupView, error)
	CreateGroup(ctx context.Context, grp models.Group) (models.Group, error)
	Apply(ctx context.Context, userID, groupID uint, reason string) (models.GroupMember, error)
	ListApplications(ctx context.Context, moderatorID, groupID uint) ([]store.MemberView, error)
	Decide(ctx context.Context, moderatorID, memberID uint, status, reply string) (models.GroupMember, error)
	CreatePost(ctx context.Context, userID, groupID uint, title, body string) (models.GroupPost, error)
	ListPosts(ctx context.Context, groupID uint, limit int) ([]store.PostView, error)
}

type GroupController struct {
	store GroupStore
	cache *utils.Cache
	media Media
}

func NewGroupController(s GroupStore, cache *utils.Cache, media Media) *GroupController {
	return &GroupController{store: s, cache: cache, media: media}
}

// ListGroups handles GET /groups?c=&o=&limit=.
func (g *GroupController) ListGroups(ctx *gin.Context) {
	limit, ok := parseLimit(ctx)
	if !ok {
		return
	}
	f := store.GroupFilter{Category: ctx.Query("c"), Order: ctx.Query("o"), Limit: limit}
	key := fmt.Sprintf("%sc=%s&o=%s&limit=%d", groupListCachePrefix, f.Category, f.Order, f.Limit)
	var cached []GroupVO
	if g.cache.GetJSON(ctx.Request.Context(), key, &cached) {
		utils.Success(ctx, cached)
		return
	}
	views, err := g.store.ListGroups(ctx.Request.Context(), f)
	if err != nil {
		respondError(ctx, err)
		return
	}
	res := mediaURL(g.media.url).groups(views)
	g.cache.SetJSON(ctx.Request.Context(), key, res)
	utils.Success(ctx, res)
}

// CreateGroup handles the multipart POST /groups. front_image is required.
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Name     string `form:"name" binding:"required,max=100"`
		Category string `form:"category" binding:"required,max=20"`
		Desc     string `form:"desc"`
		Notice   string `form:"notice"`
	}
	fields := map[string]string{}
	if err := ctx.ShouldBind(&req); err != nil {
		fields = bindingFields(err)
	}
	if !uploaded(ctx, "front_image") {
		fields["front_image"] = "this field is required"
	}
	if len(fields) > 0 {
		utils.Invalid(ctx, fields)
		return
	}
	image, ok := g.media.save(ctx, "front_image")
	if !ok {
		return
	}

	created, err := g.store.CreateGroup(ctx.Request.Context(), models.Group{
		CreatorID:  userID,
		Name:       utils.SanitizeText(req.Name),
		Category:   utils.SanitizeText(req.Category),
		FrontImage: image,
		Desc:       utils.Sanitize(req.Desc),
		Notice:     utils.Sanitize(req.Notice),
	})
	if err != nil {
		g.media.discard(image)
		respondError(ctx, err)
		return
	}
	g.cache.InvalidatePrefix(ctx.Request.Context(), groupListCachePrefix)
	utils.Created(ctx, gin.H{"id": created.ID})
}

// GetGroup handles GET /groups/:id.
func (g *GroupController) GetGroup(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	key := fmt.Sprintf("%s%d", groupDetailCachePrefix, id)
	var cached GroupVO
	if g.cache.GetJSON(ctx.Request.Context(), key, &cached) {
		utils.Success(ctx, cached)
		return
	}
	view, err := g.store.GetGroup(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	res := mediaURL(g.media.url).group(view)
	g.cache.SetJSON(ctx.Request.Context(), key, res)
	utils.Success(ctx, res)
}

// Apply handles POST /groups/:id/members.
func (g *GroupController) Apply(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		ApplyReason string `json:"apply_reason" binding:"max=200"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}
	m, err := g.store.Apply(ctx.Request.Context(), userID, id, utils.SanitizeText(req.ApplyReason))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"id": m.ID})
}

// ListApplications handles GET /groups/:id/members for the group creator.
func (g *GroupController) ListApplications(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	views, err := g.store.ListApplications(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, members(views))
}

// Decide handles PATCH /members/:id.
func (g *GroupController) Decide(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=agreed refused"`
		Reply  string `json:"reply" binding:"max=200"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}
	m, err := g.store.Decide(ctx.Request.Context(), userID, id, req.Status, utils.SanitizeText(req.Reply))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if m.Status != nil && *m.Status == models.MemberAgreed {
		g.cache.Del(ctx.Request.Context(), fmt.Sprintf("%s%d", groupDetailCachePrefix, m.GroupID))
		g.cache.InvalidatePrefix(ctx.Request.Context(), groupListCachePrefix)
	}
	utils.Success(ctx, gin.H{"id": m.ID, "status": memberStatus(m.Status)})
}

// ListPosts handles GET /groups/:id/posts.
func (g *GroupController) ListPosts(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	limit, ok := parseLimit(ctx)
	if !ok {
		return
	}
	views, err := g.store.ListPosts(ctx.Request.Context(), id, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, posts(views))
}

// CreatePost handles POST /groups/:id/posts; only agreed members may post.
func (g *GroupController) CreatePost(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title" binding:"required,max=200"`
		Body  string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}
	title, body := utils.SanitizeText(req.Title), utils.Sanitize(req.Body)
	fields := map[string]string{}
	if title == "" {
		fields["title"] = "this field is required"
	}
	if body == "" {
		fields["body"] = "this field is required"
	}
	if len(fields) > 0 {
		utils.Invalid(ctx, fields)
		return
	}

	p, err := g.store.CreatePost(ctx.Request.Context(), userID, id, title, body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	// post_num changed on the detail and on every listing
	g.cache.Del(ctx.Request.Context(), fmt.Sprintf("%s%d", groupDetailCachePrefix, id))
	g.cache.InvalidatePrefix(ctx.Request.Context(), groupListCachePrefix)
	utils.Created(ctx, gin.H{"id": p.ID})
}
