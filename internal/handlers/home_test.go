package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	dbtestutil "github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/handlers/testutil"
	"github.com/charlesng35/campushub/internal/models"
)

type feedPayload struct {
	Tab   string `json:"tab"`
	Items []struct {
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		Title    string `json:"title"`
		IsUrgent bool   `json:"is_urgent"`
	} `json:"items"`
}

func TestFeedHandler_TabsFilterKinds(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher, teacherToken := env.SignInAs(models.RoleTeacher, "Grace Hopper")
	class := env.CreateClass(teacher.ID, "Compilers")
	student, studentToken := env.SignInAs(models.RoleStudent, "Ada Lovelace")
	env.Enroll(class.ID, student.ID)

	announcement := env.Request(http.MethodPost, "/api/announcements", map[string]any{
		"title":      "Exam moved",
		"content":    "The midterm is now on Friday",
		"visibility": "class",
		"class_id":   class.ID,
	}, teacherToken)
	require.Equal(t, http.StatusCreated, announcement.Code, announcement.Body.String())

	post := env.Request(http.MethodPost, "/api/posts", map[string]any{
		"content":    "Anyone up for a study group?",
		"visibility": "all_users",
	}, studentToken)
	require.Equal(t, http.StatusCreated, post.Code, post.Body.String())

	all := env.Request(http.MethodGet, "/api/feed", nil, studentToken)
	require.Equal(t, http.StatusOK, all.Code, all.Body.String())
	var everything feedPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, all).Data, &everything)
	require.Equal(t, "all", everything.Tab)
	require.Len(t, everything.Items, 2)

	posts := env.Request(http.MethodGet, "/api/feed?tab=posts", nil, studentToken)
	require.Equal(t, http.StatusOK, posts.Code, posts.Body.String())
	var onlyPosts feedPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, posts).Data, &onlyPosts)
	require.Equal(t, "posts", onlyPosts.Tab)
	require.Len(t, onlyPosts.Items, 1)
	require.Equal(t, "post", onlyPosts.Items[0].Kind)

	invalid := env.Request(http.MethodGet, "/api/feed?tab=videos", nil, studentToken)
	require.Equal(t, http.StatusBadRequest, invalid.Code)
}

func TestFeedHandler_HidesOtherClasses(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher, teacherToken := env.SignInAs(models.RoleTeacher, "Grace Hopper")
	class := env.CreateClass(teacher.ID, "Compilers")
	_, outsiderToken := env.SignInAs(models.RoleStudent, "Alan Turing")

	resp := env.Request(http.MethodPost, "/api/announcements", map[string]any{
		"title":      "Lab closed",
		"content":    "No lab this week",
		"visibility": "class",
		"class_id":   class.ID,
	}, teacherToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	feed := env.Request(http.MethodGet, "/api/feed?tab=announcements", nil, outsiderToken)
	require.Equal(t, http.StatusOK, feed.Code, feed.Body.String())
	var payload feedPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, feed).Data, &payload)
	require.Empty(t, payload.Items)
}

type inboxPayload struct {
	Items []struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Title  string `json:"title"`
		IsRead bool   `json:"is_read"`
	} `json:"items"`
	UnreadCount int `json:"unread_count"`
}

func TestNotificationHandler_MarkReadAndMarkAll(t *testing.T) {
	env := testutil.NewEnv(t)
	_, teacherToken := env.SignInAs(models.RoleTeacher, "Grace Hopper")
	_, studentToken := env.SignInAs(models.RoleStudent, "Ada Lovelace")

	for _, title := range []string{"Storm warning", "Power outage"} {
		resp := env.Request(http.MethodPost, "/api/announcements", map[string]any{
			"title":      title,
			"content":    "Campus closes early",
			"visibility": "public",
			"is_urgent":  true,
		}, teacherToken)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	list := env.Request(http.MethodGet, "/api/notifications", nil, studentToken)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	var inbox inboxPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &inbox)
	require.Len(t, inbox.Items, 2)
	require.Equal(t, 2, inbox.UnreadCount)
	require.Equal(t, "announcement", inbox.Items[0].Type)

	markOne := env.Request(http.MethodPost, "/api/notifications/"+inbox.Items[0].ID+"/read", nil, studentToken)
	require.Equal(t, http.StatusOK, markOne.Code, markOne.Body.String())
	var count struct {
		UnreadCount int `json:"unread_count"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, markOne).Data, &count)
	require.Equal(t, 1, count.UnreadCount)

	markAll := env.Request(http.MethodPost, "/api/notifications/read-all", nil, studentToken)
	require.Equal(t, http.StatusOK, markAll.Code, markAll.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, markAll).Data, &count)
	require.Zero(t, count.UnreadCount)

	unread := env.Request(http.MethodGet, "/api/notifications/unread-count", nil, studentToken)
	require.Equal(t, http.StatusOK, unread.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, unread).Data, &count)
	require.Zero(t, count.UnreadCount)

	// The teacher's inbox is independent of the student's read state.
	teacherList := env.Request(http.MethodGet, "/api/notifications", nil, teacherToken)
	require.Equal(t, http.StatusOK, teacherList.Code)
	var teacherInbox inboxPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, teacherList).Data, &teacherInbox)
	require.Equal(t, 2, teacherInbox.UnreadCount)
}

func TestNotificationHandler_SignOutDropsInbox(t *testing.T) {
	env := testutil.NewEnv(t)
	_, teacherToken := env.SignInAs(models.RoleTeacher, "Grace Hopper")
	student, studentToken := env.SignInAs(models.RoleStudent, "Ada Lovelace")

	resp := env.Request(http.MethodPost, "/api/announcements", map[string]any{
		"title":      "Storm warning",
		"content":    "Campus closes early",
		"visibility": "public",
		"is_urgent":  true,
	}, teacherToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	markAll := env.Request(http.MethodPost, "/api/notifications/read-all", nil, studentToken)
	require.Equal(t, http.StatusOK, markAll.Code, markAll.Body.String())

	signOut := env.Request(http.MethodPost, "/api/auth/signout", nil, studentToken)
	require.Equal(t, http.StatusOK, signOut.Code, signOut.Body.String())

	session := env.SignIn(student.Email, dbtestutil.DefaultPassword)
	list := env.Request(http.MethodGet, "/api/notifications", nil, session.AccessToken)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	var inbox inboxPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &inbox)
	require.Len(t, inbox.Items, 1)
	require.Equal(t, 1, inbox.UnreadCount)
}
