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
	questionListCachePrefix   = "cache:questions:list:"
	questionDetailCachePrefix = "cache:questions:detail:"
)

// DiscussionStore is the part of the store the question handlers need.
type DiscussionStore interface {
	ListQuestions(ctx context.Context, f store.QuestionFilter) ([]store.QuestionView, error)
	GetQuestion(ctx context.Context, id uint) (store.QuestionView, error)
	CreateQuestion(ctx context.Context, q models.Question) (models.Question, error)
	ListAnswers(ctx context.Context, questionID uint) ([]store.AnswerView, error)
	CreateAnswer(ctx context.Context, authorID, questionID uint, body string) (models.Answer, error)
	ListReplies(ctx context.Context, answerID uint) ([]store.AnswerView, error)
	CreateReply(ctx context.Context, authorID, answeredID, repliedID uint, body string) (models.Answer, error)
}

// IdentityLookup resolves the display identity of the caller.
type IdentityLookup interface {
	Get(ctx context.Context, id uint) (models.Identity, error)
}

// QuestionController serves questions, their answers and the replies under answers.
type QuestionController struct {
	store DiscussionStore
	users IdentityLookup
	cache *utils.Cache
	media Media
}

func NewQuestionController(s DiscussionStore, users IdentityLookup, cache *utils.Cache, media Media) *QuestionController {
	return &QuestionController{store: s, users: users, cache: cache, media: media}
}

// ListQuestions handles GET /questions?c=&o=&limit=.
func (q *QuestionController) ListQuestions(ctx *gin.Context) {
	limit, ok := parseLimit(ctx)
	if !ok {
		return
	}
	f := store.QuestionFilter{Category: ctx.Query("c"), Order: ctx.Query("o"), Limit: limit}
	key := fmt.Sprintf("%sc=%s&o=%s&limit=%d", questionListCachePrefix, f.Category, f.Order, f.Limit)
	var cached []QuestionVO
	if q.cache.GetJSON(ctx.Request.Context(), key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	views, err := q.store.ListQuestions(ctx.Request.Context(), f)
	if err != nil {
		respondError(ctx, err)
		return
	}
	res := mediaURL(q.media.url).questions(views)
	q.cache.SetJSON(ctx.Request.Context(), key, res)
	utils.Success(ctx, res)
}

// CreateQuestion handles the multipart POST /questions with an optional image.
func (q *QuestionController) CreateQuestion(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	var req struct {
		Category string `form:"category" binding:"required,max=20"`
		Title    string `form:"title" binding:"required,max=200"`
		Body     string `form:"body" binding:"required"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}
	title := utils.SanitizeText(req.Title)
	if title == "" {
		utils.Invalid(ctx, map[string]string{"title": "this field is required"})
		return
	}
	image, ok := q.media.save(ctx, "image")
	if !ok {
		return
	}

	created, err := q.store.CreateQuestion(ctx.Request.Context(), models.Question{
		UserID:   userID,
		Category: utils.SanitizeText(req.Category),
		Title:    title,
		Body:     utils.Sanitize(req.Body),
		Image:    image,
	})
	if err != nil {
		q.media.discard(image)
		respondError(ctx, err)
		return
	}
	q.cache.InvalidatePrefix(ctx.Request.Context(), questionListCachePrefix)
	utils.Created(ctx, gin.H{"id": created.ID})
}

// GetQuestion handles GET /questions/:id.
func (q *QuestionController) GetQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	key := fmt.Sprintf("%s%d", questionDetailCachePrefix, id)
	var cached QuestionVO
	if q.cache.GetJSON(ctx.Request.Context(), key, &cached) {
		utils.Success(ctx, cached)
		return
	}
	view, err := q.store.GetQuestion(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	res := mediaURL(q.media.url).question(view)
	q.cache.SetJSON(ctx.Request.Context(), key, res)
	utils.Success(ctx, res)
}

// ListAnswers handles GET /questions/:id/answers.
func (q *QuestionController) ListAnswers(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	views, err := q.store.ListAnswers(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, answers(views))
}

// CreateAnswer handles POST /questions/:id/answers.
func (q *QuestionController) CreateAnswer(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}
	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Invalid(ctx, map[string]string{"body": "this field is required"})
		return
	}

	a, err := q.store.CreateAnswer(ctx.Request.Context(), userID, id, body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	// answer_num changed: detail and hot ordering are stale
	q.cache.Del(ctx.Request.Context(), fmt.Sprintf("%s%d", questionDetailCachePrefix, id))
	q.cache.InvalidatePrefix(ctx.Request.Context(), questionListCachePrefix)
	q.created(ctx, a.ID, userID)
}

// ListReplies handles GET /answers/:id/replies.
func (q *QuestionController) ListReplies(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	views, err := q.store.ListReplies(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, answers(views))
}

// CreateReply handles POST /answers/:id/replies.
func (q *QuestionController) CreateReply(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Replied uint   `json:"replied" binding:"required,gt=0"`
		Body    string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Invalid(ctx, bindingFields(err))
		return
	}
	body := utils.Sanitize(req.Body)
	if body == "" {
		utils.Invalid(ctx, map[string]string{"body": "this field is required"})
		return
	}

	r, err := q.store.CreateReply(ctx.Request.Context(), userID, id, req.Replied, body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.created(ctx, r.ID, userID)
}

// created answers 201 with the new id and the author's identity.
func (q *QuestionController) created(ctx *gin.Context, id, userID uint) {
	res := gin.H{"id": id}
	if who, err := q.users.Get(ctx.Request.Context(), userID); err == nil {
		res["user"] = who
	} else {
		utils.Sugar.Warnf("identity lookup failed user_id=%d err=%v", userID, err)
	}
	utils.Created(ctx, res)
}
