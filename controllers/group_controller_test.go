package controllers

import (
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mxforum/mxforum/models"
	"github.com/mxforum/mxforum/store"
)

func newGroupController(t *testing.T) (*GroupController, *groupsMock, string) {
	root := t.TempDir()
	g := &groupsMock{}
	t.Cleanup(func() { g.AssertExpectations(t) })
	return NewGroupController(g, nil, Media{Root: root, SiteURL: "http://forum.test", MaxBytes: 1 << 20}), g, root
}

func TestGroupController_CreateGroup(t *testing.T) {
	fields := map[string]string{"name": "gophers", "category": "go", "desc": "<b>all</b> things go"}

	t.Run("front image is required", func(t *testing.T) {
		gc, _, _ := newGroupController(t)
		req := multipartRequest(t, "/groups", map[string]string{"category": "go"}, "", "", nil)
		resp, env := serve(t, 1, http.MethodPost, "/groups", gc.CreateGroup, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		got := decode[map[string]string](t, env.Data)
		assert.Contains(t, got, "front_image")
		assert.Contains(t, got, "name")
	})

	t.Run("created", func(t *testing.T) {
		gc, g, _ := newGroupController(t)
		g.On("CreateGroup", mock.Anything, mock.MatchedBy(func(grp models.Group) bool {
			return grp.CreatorID == 1 && grp.Name == "gophers" && grp.Desc == "<b>all</b> things go" && grp.FrontImage != ""
		})).Return(models.Group{ID: 4}, nil)

		req := multipartRequest(t, "/groups", fields, "front_image", "cover.png", pngHead)
		resp, env := serve(t, 1, http.MethodPost, "/groups", gc.CreateGroup, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, map[string]uint{"id": 4}, decode[map[string]uint](t, env.Data))
	})

	t.Run("failed insert drops the upload", func(t *testing.T) {
		gc, g, root := newGroupController(t)
		g.On("CreateGroup", mock.Anything, mock.Anything).Return(models.Group{}, errors.New("gone away"))

		req := multipartRequest(t, "/groups", fields, "front_image", "cover.png", pngHead)
		resp, _ := serve(t, 1, http.MethodPost, "/groups", gc.CreateGroup, req)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestGroupController_Apply(t *testing.T) {
	gc, g, _ := newGroupController(t)
	g.On("Apply", mock.Anything, uint(3), uint(4), "let me in").
		Return(models.GroupMember{}, store.Invalid("group", "you have already applied to this group"))

	resp, env := serve(t, 3, http.MethodPost, "/groups/:id/members", gc.Apply,
		jsonRequest(http.MethodPost, "/groups/4/members", `{"apply_reason":"let me in"}`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decode[map[string]string](t, env.Data), "group")
}

func TestGroupController_ListApplications(t *testing.T) {
	t.Run("creator only", func(t *testing.T) {
		gc, g, _ := newGroupController(t)
		g.On("ListApplications", mock.Anything, uint(3), uint(4)).Return([]store.MemberView(nil), store.ErrForbidden)
		resp, _ := serve(t, 3, http.MethodGet, "/groups/:id/members", gc.ListApplications,
			jsonRequest(http.MethodGet, "/groups/4/members", ""))
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("pending requests", func(t *testing.T) {
		gc, g, _ := newGroupController(t)
		g.On("ListApplications", mock.Anything, uint(1), uint(4)).Return([]store.MemberView{{
			GroupMember:       models.GroupMember{ID: 31, UserID: 3, GroupID: 4, ApplyReason: "let me in"},
			ApplicantUsername: "eve",
		}}, nil)
		resp, env := serve(t, 1, http.MethodGet, "/groups/:id/members", gc.ListApplications,
			jsonRequest(http.MethodGet, "/groups/4/members", ""))
		require.Equal(t, http.StatusOK, resp.Code)
		got := decode[[]MemberVO](t, env.Data)
		require.Len(t, got, 1)
		assert.Equal(t, "pending", got[0].Status)
		assert.Equal(t, "eve", got[0].User.DisplayName)
	})
}

func TestGroupController_Decide(t *testing.T) {
	agreed := models.MemberAgreed
	testCases := []struct {
		name     string
		body     string
		mock     func(g *groupsMock)
		wantCode int
	}{
		{
			name: "agreed",
			body: `{"status":"agreed","reply":"welcome"}`,
			mock: func(g *groupsMock) {
				g.On("Decide", mock.Anything, uint(1), uint(31), "agreed", "welcome").
					Return(models.GroupMember{ID: 31, GroupID: 4, Status: &agreed}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown status",
			body:     `{"status":"maybe"}`,
			mock:     func(g *groupsMock) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "not the creator",
			body: `{"status":"refused"}`,
			mock: func(g *groupsMock) {
				g.On("Decide", mock.Anything, uint(1), uint(31), "refused", "").Return(models.GroupMember{}, store.ErrForbidden)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "already handled",
			body: `{"status":"refused"}`,
			mock: func(g *groupsMock) {
				g.On("Decide", mock.Anything, uint(1), uint(31), "refused", "").
					Return(models.GroupMember{}, store.Invalid("status", "the application has already been handled"))
			},
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gc, g, _ := newGroupController(t)
			tc.mock(g)
			resp, env := serve(t, 1, http.MethodPatch, "/members/:id", gc.Decide,
				jsonRequest(http.MethodPatch, "/members/31", tc.body))
			require.Equal(t, tc.wantCode, resp.Code)
			if tc.wantCode == http.StatusBadRequest {
				assert.Contains(t, decode[map[string]string](t, env.Data), "status")
			}
		})
	}
}

func TestGroupController_CreatePost(t *testing.T) {
	t.Run("members only", func(t *testing.T) {
		gc, g, _ := newGroupController(t)
		g.On("CreatePost", mock.Anything, uint(3), uint(4), "hi", "hello").Return(models.GroupPost{}, store.ErrForbidden)
		resp, _ := serve(t, 3, http.MethodPost, "/groups/:id/posts", gc.CreatePost,
			jsonRequest(http.MethodPost, "/groups/4/posts", `{"title":"hi","body":"hello"}`))
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("created", func(t *testing.T) {
		gc, g, _ := newGroupController(t)
		g.On("CreatePost", mock.Anything, uint(3), uint(4), "hi", "hello").Return(models.GroupPost{ID: 50}, nil)
		resp, env := serve(t, 3, http.MethodPost, "/groups/:id/posts", gc.CreatePost,
			jsonRequest(http.MethodPost, "/groups/4/posts", `{"title":"hi","body":"hello"}`))
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, map[string]uint{"id": 50}, decode[map[string]uint](t, env.Data))
	})

	t.Run("blank title", func(t *testing.T) {
		gc, _, _ := newGroupController(t)
		resp, env := serve(t, 3, http.MethodPost, "/groups/:id/posts", gc.CreatePost,
			jsonRequest(http.MethodPost, "/groups/4/posts", `{"title":"<p></p>","body":"hello"}`))
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, decode[map[string]string](t, env.Data), "title")
	})
}

func TestGroupController_CreatePostInvalidatesCache(t *testing.T) {
	g := &groupsMock{}
	t.Cleanup(func() { g.AssertExpectations(t) })
	cache, log := recordingCache()
	gc := NewGroupController(g, cache, Media{Root: t.TempDir(), MaxBytes: 1 << 20})
	g.On("CreatePost", mock.Anything, uint(3), uint(1), "hi", "hello").Return(models.GroupPost{ID: 50}, nil)

	resp, _ := serve(t, 3, http.MethodPost, "/groups/:id/posts", gc.CreatePost,
		jsonRequest(http.MethodPost, "/groups/1/posts", `{"title":"hi","body":"hello"}`))
	require.Equal(t, http.StatusCreated, resp.Code)
	// only group 1's detail goes, never detail:10 and friends
	assert.Equal(t, []string{
		"del cache:groups:detail:1",
		"scan 0 match cache:groups:list:* count 1000",
	}, log.cmds)
}

func TestGroupController_ListPosts(t *testing.T) {
	gc, g, _ := newGroupController(t)
	g.On("ListPosts", mock.Anything, uint(4), 0).Return([]store.PostView(nil), store.ErrNotFound)
	resp, _ := serve(t, 3, http.MethodGet, "/groups/:id/posts", gc.ListPosts,
		jsonRequest(http.MethodGet, "/groups/4/posts", ""))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
