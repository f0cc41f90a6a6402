package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
)

func TestAnnouncementServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	other := testutil.CreateUser(t, db, models.RoleTeacher, "Ada Lovelace")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Katherine Johnson")
	outsider := testutil.CreateUser(t, db, models.RoleStudent, "Dorothy Vaughan")
	class := testutil.CreateClass(t, db, teacher.ID, "Compilers")
	testutil.Enroll(t, db, class.ID, student.ID)

	hub := realtime.NewHub()
	received := make(chan realtime.Message, 1)
	cancel := hub.Listen(realtime.ClassStream(class.ID, realtime.KindAnnouncements), func(m realtime.Message) {
		received <- m
	})
	defer cancel()

	svc, err := NewAnnouncementService(db, NewChangePublisher(hub, nil))
	require.NoError(t, err)

	teacherViewer := Viewer{UserID: teacher.ID, Role: models.RoleTeacher}

	_, err = svc.Create(ctx, Viewer{UserID: student.ID, Role: models.RoleStudent}, forms.AnnouncementInput{
		Title: "Nope", Content: "x", Visibility: models.VisibilityPublic,
	})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Create(ctx, Viewer{UserID: other.ID, Role: models.RoleTeacher}, forms.AnnouncementInput{
		Title: "Hijack", Content: "x", Visibility: models.VisibilityClass, ClassID: class.ID,
	})
	requireAppError(t, err, http.StatusForbidden)

	classNote, err := svc.Create(ctx, teacherViewer, forms.AnnouncementInput{
		Title: "Quiz", Content: "Friday", Visibility: models.VisibilityClass, ClassID: class.ID,
	})
	require.NoError(t, err)
	require.Equal(t, class.ID, derefString(classNote.ClassID))

	select {
	case msg := <-received:
		require.Equal(t, EventAnnouncementCreated, msg.Event)
		require.Equal(t, class.ID, msg.Meta["class_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected class announcement event")
	}

	_, err = svc.Create(ctx, teacherViewer, forms.AnnouncementInput{
		Title: "Campus closed", Content: "Snow day", Visibility: models.VisibilityPublic, IsUrgent: true,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, teacherViewer, forms.AnnouncementInput{
		Title: "Dept", Content: "x", Visibility: models.VisibilityDepartment, DepartmentID: "missing",
	})
	requireAppError(t, err, http.StatusBadRequest)

	studentList, err := svc.List(ctx, Viewer{UserID: student.ID, Role: models.RoleStudent}, "", 0)
	require.NoError(t, err)
	require.Len(t, studentList, 2)

	outsiderList, err := svc.List(ctx, Viewer{UserID: outsider.ID, Role: models.RoleStudent}, "", 0)
	require.NoError(t, err)
	require.Len(t, outsiderList, 1)
	require.Equal(t, "Campus closed", outsiderList[0].Title)

	scoped, err := svc.List(ctx, Viewer{UserID: student.ID, Role: models.RoleStudent}, class.ID, 0)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, classNote.ID, scoped[0].ID)
}

func TestAnnouncementServiceDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	other := testutil.CreateUser(t, db, models.RoleTeacher, "Ada Lovelace")
	admin := testutil.CreateUser(t, db, models.RoleAdmin, "Root")

	svc, err := NewAnnouncementService(db, nil)
	require.NoError(t, err)

	note, err := svc.Create(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, forms.AnnouncementInput{
		Title: "Hello", Content: "World", Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, Viewer{UserID: other.ID, Role: models.RoleTeacher}, note.ID)
	requireAppError(t, err, http.StatusForbidden)

	require.NoError(t, svc.Delete(ctx, Viewer{UserID: admin.ID, Role: models.RoleAdmin}, note.ID))

	err = svc.Delete(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, note.ID)
	requireAppError(t, err, http.StatusNotFound)

	list, err := svc.List(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, "", 10)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPostServiceMembershipAndVisibility(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	member := testutil.CreateUser(t, db, models.RoleStudent, "Katherine Johnson")
	outsider := testutil.CreateUser(t, db, models.RoleStudent, "Dorothy Vaughan")
	class := testutil.CreateClass(t, db, teacher.ID, "Compilers")
	testutil.Enroll(t, db, class.ID, member.ID)

	svc, err := NewPostService(db, nil)
	require.NoError(t, err)

	memberViewer := Viewer{UserID: member.ID, Role: models.RoleStudent}
	outsiderViewer := Viewer{UserID: outsider.ID, Role: models.RoleStudent}

	_, err = svc.Create(ctx, outsiderViewer, forms.PostInput{
		Content: "let me in", Visibility: models.PostVisibilityClass, ClassID: class.ID,
	})
	requireAppError(t, err, http.StatusForbidden)

	classPost, err := svc.Create(ctx, memberViewer, forms.PostInput{
		Content: "study group tonight", Visibility: models.PostVisibilityClass, ClassID: class.ID,
		ImageURLs: []string{"/files/posts/a.png"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/files/posts/a.png"}, models.DecodeStrings(classPost.ImageURLs))

	_, err = svc.Create(ctx, outsiderViewer, forms.PostInput{
		Content: "hello everyone", Visibility: models.PostVisibilityAllUsers,
	})
	require.NoError(t, err)

	memberFeed, err := svc.List(ctx, memberViewer, 0)
	require.NoError(t, err)
	require.Len(t, memberFeed, 2)

	outsiderFeed, err := svc.List(ctx, outsiderViewer, 0)
	require.NoError(t, err)
	require.Len(t, outsiderFeed, 1)
	require.Equal(t, "hello everyone", outsiderFeed[0].Content)

	teacherFeed, err := svc.List(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, 0)
	require.NoError(t, err)
	require.Len(t, teacherFeed, 2)

	err = svc.Delete(ctx, outsiderViewer, classPost.ID)
	requireAppError(t, err, http.StatusForbidden)
	require.NoError(t, svc.Delete(ctx, memberViewer, classPost.ID))

	memberFeed, err = svc.List(ctx, memberViewer, 0)
	require.NoError(t, err)
	require.Len(t, memberFeed, 1)
}

func TestAssignmentServiceLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	other := testutil.CreateUser(t, db, models.RoleTeacher, "Ada Lovelace")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Katherine Johnson")
	class := testutil.CreateClass(t, db, teacher.ID, "Compilers")
	testutil.Enroll(t, db, class.ID, student.ID)

	svc, err := NewAssignmentService(db, nil)
	require.NoError(t, err)

	teacherViewer := Viewer{UserID: teacher.ID, Role: models.RoleTeacher}
	studentViewer := Viewer{UserID: student.ID, Role: models.RoleStudent}

	_, err = svc.Create(ctx, Viewer{UserID: other.ID, Role: models.RoleTeacher}, forms.AssignmentInput{
		Title: "Parser", Description: "Write one", ClassID: class.ID, DueAt: time.Now().Add(72 * time.Hour), TotalPoints: 50,
	})
	requireAppError(t, err, http.StatusForbidden)

	assignment, err := svc.Create(ctx, teacherViewer, forms.AssignmentInput{
		Title: "Parser", Description: "Write one", ClassID: class.ID, DueAt: time.Now().Add(72 * time.Hour), TotalPoints: 50,
	})
	require.NoError(t, err)
	require.False(t, assignment.IsPublished)

	drafts, err := svc.ListByClass(ctx, studentViewer, class.ID)
	require.NoError(t, err)
	require.Empty(t, drafts)

	_, err = svc.Submit(ctx, studentViewer, SubmitAssignmentInput{AssignmentID: assignment.ID, TextAnswer: "early"})
	requireAppError(t, err, http.StatusNotFound)

	_, err = svc.Publish(ctx, teacherViewer, assignment.ID)
	require.NoError(t, err)

	visible, err := svc.ListByClass(ctx, studentViewer, class.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	draft, err := svc.Submit(ctx, studentViewer, SubmitAssignmentInput{
		AssignmentID: assignment.ID, TextAnswer: "wip", Status: models.SubmissionDraft,
	})
	require.NoError(t, err)
	require.Nil(t, draft.SubmittedAt)

	_, err = svc.Grade(ctx, teacherViewer, GradeSubmissionInput{SubmissionID: draft.ID, Grade: 10})
	requireAppError(t, err, http.StatusBadRequest)

	submitted, err := svc.Submit(ctx, studentViewer, SubmitAssignmentInput{AssignmentID: assignment.ID, TextAnswer: "done"})
	require.NoError(t, err)
	require.Equal(t, draft.ID, submitted.ID)
	require.Equal(t, models.SubmissionSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	list, err := svc.ListSubmissions(ctx, teacherViewer, assignment.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.ListSubmissions(ctx, Viewer{UserID: other.ID, Role: models.RoleTeacher}, assignment.ID)
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Grade(ctx, teacherViewer, GradeSubmissionInput{SubmissionID: submitted.ID, Grade: 51})
	requireAppError(t, err, http.StatusBadRequest)

	graded, err := svc.Grade(ctx, teacherViewer, GradeSubmissionInput{SubmissionID: submitted.ID, Grade: 45, Feedback: " good "})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionGraded, graded.Status)
	require.Equal(t, "good", graded.Feedback)
	require.InDelta(t, 45, *graded.Grade, 0.001)

	_, err = svc.Submit(ctx, studentViewer, SubmitAssignmentInput{AssignmentID: assignment.ID, TextAnswer: "again"})
	requireAppError(t, err, http.StatusConflict)
}

func TestAssignmentServiceRejectsOutsiders(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Grace Hopper")
	outsider := testutil.CreateUser(t, db, models.RoleStudent, "Dorothy Vaughan")
	class := testutil.CreateClass(t, db, teacher.ID, "Compilers")

	svc, err := NewAssignmentService(db, nil)
	require.NoError(t, err)

	assignment, err := svc.Create(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, forms.AssignmentInput{
		Title: "Lexer", Description: "Tokens", ClassID: class.ID, DueAt: time.Now().Add(time.Hour),
		TotalPoints: 10, IsPublished: true,
	})
	require.NoError(t, err)

	viewer := Viewer{UserID: outsider.ID, Role: models.RoleStudent}
	_, err = svc.ListByClass(ctx, viewer, class.ID)
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Submit(ctx, viewer, SubmitAssignmentInput{AssignmentID: assignment.ID, TextAnswer: "hi"})
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Submit(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, SubmitAssignmentInput{AssignmentID: assignment.ID})
	requireAppError(t, err, http.StatusForbidden)
}
