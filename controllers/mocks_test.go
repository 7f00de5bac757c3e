package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mxforum/mxforum/config"
	"github.com/mxforum/mxforum/middleware"
	"github.com/mxforum/mxforum/models"
	"github.com/mxforum/mxforum/store"
	"github.com/mxforum/mxforum/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret", SiteURL: "http://forum.test"})
}

var pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// serve runs req through handler mounted at method/pattern. A non-zero
// userID is placed on the context the way AuthRequired does.
func serve(t *testing.T, userID uint, method, pattern string, handler gin.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	server := gin.New()
	server.Handle(method, pattern, func(ctx *gin.Context) {
		if userID != 0 {
			ctx.Set(middleware.ContextUserIDKey, userID)
		}
	}, handler)
	resp := httptest.NewRecorder()
	server.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with the given fields and, when content is
// non-nil, one file part under fileField.
func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if content != nil {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// cacheLog records the redis commands a Cache sends and answers them
// locally: scans come back empty and deletes report one key.
type cacheLog struct{ cmds []string }

func (l *cacheLog) DialHook(next redis.DialHook) redis.DialHook { return next }

func (l *cacheLog) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		l.cmds = append(l.cmds, strings.TrimSpace(fmt.Sprintln(cmd.Args()...)))
		switch c := cmd.(type) {
		case *redis.ScanCmd:
			c.SetVal(nil, 0)
		case *redis.IntCmd:
			c.SetVal(1)
		default:
			cmd.SetErr(redis.Nil)
		}
		return cmd.Err()
	}
}

func (l *cacheLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func recordingCache() (*utils.Cache, *cacheLog) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	log := &cacheLog{}
	rc.AddHook(log)
	return utils.NewCache(rc, time.Minute), log
}

type discussionMock struct{ mock.Mock }

func (m *discussionMock) ListQuestions(ctx context.Context, f store.QuestionFilter) ([]store.QuestionView, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]store.QuestionView), args.Error(1)
}

func (m *discussionMock) GetQuestion(ctx context.Context, id uint) (store.QuestionView, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.QuestionView), args.Error(1)
}

func (m *discussionMock) CreateQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(models.Question), args.Error(1)
}

func (m *discussionMock) ListAnswers(ctx context.Context, questionID uint) ([]store.AnswerView, error) {
	args := m.Called(ctx, questionID)
	return args.Get(0).([]store.AnswerView), args.Error(1)
}

func (m *discussionMock) CreateAnswer(ctx context.Context, authorID, questionID uint, body string) (models.Answer, error) {
	args := m.Called(ctx, authorID, questionID, body)
	return args.Get(0).(models.Answer), args.Error(1)
}

func (m *discussionMock) ListReplies(ctx context.Context, answerID uint) ([]store.AnswerView, error) {
	args := m.Called(ctx, answerID)
	return args.Get(0).([]store.AnswerView), args.Error(1)
}

func (m *discussionMock) CreateReply(ctx context.Context, authorID, answeredID, repliedID uint, body string) (models.Answer, error) {
	args := m.Called(ctx, authorID, answeredID, repliedID, body)
	return args.Get(0).(models.Answer), args.Error(1)
}

type identityMock struct{ mock.Mock }

func (m *identityMock) Get(ctx context.Context, id uint) (models.Identity, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Identity), args.Error(1)
}

type groupsMock struct{ mock.Mock }

func (m *groupsMock) ListGroups(ctx context.Context, f store.GroupFilter) ([]store.GroupView, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]store.GroupView), args.Error(1)
}

func (m *groupsMock) GetGroup(ctx context.Context, id uint) (store.GroupView, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.GroupView), args.Error(1)
}

func (m *groupsMock) CreateGroup(ctx context.Context, grp models.Group) (models.Group, error) {
	args := m.Called(ctx, grp)
	return args.Get(0).(models.Group), args.Error(1)
}

func (m *groupsMock) Apply(ctx context.Context, userID, groupID uint, reason string) (models.GroupMember, error) {
	args := m.Called(ctx, userID, groupID, reason)
	return args.Get(0).(models.GroupMember), args.Error(1)
}

func (m *groupsMock) ListApplications(ctx context.Context, moderatorID, groupID uint) ([]store.MemberView, error) {
	args := m.Called(ctx, moderatorID, groupID)
	return args.Get(0).([]store.MemberView), args.Error(1)
}

func (m *groupsMock) Decide(ctx context.Context, moderatorID, memberID uint, status, reply string) (models.GroupMember, error) {
	args := m.Called(ctx, moderatorID, memberID, status, reply)
	return args.Get(0).(models.GroupMember), args.Error(1)
}

func (m *groupsMock) CreatePost(ctx context.Context, userID, groupID uint, title, body string) (models.GroupPost, error) {
	args := m.Called(ctx, userID, groupID, title, body)
	return args.Get(0).(models.GroupPost), args.Error(1)
}

func (m *groupsMock) ListPosts(ctx context.Context, groupID uint, limit int) ([]store.PostView, error) {
	args := m.Called(ctx, groupID, limit)
	return args.Get(0).([]store.PostView), args.Error(1)
}

type accountsMock struct{ mock.Mock }

func (m *accountsMock) FindByID(ctx context.Context, id uint) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *accountsMock) FindByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *accountsMock) Create(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *accountsMock) UpsertExternal(ctx context.Context, ext store.ExternalAccount) (models.User, error) {
	args := m.Called(ctx, ext)
	return args.Get(0).(models.User), args.Error(1)
}
