package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/forms"
	"github.com/charlesng35/campushub/internal/models"
	"github.com/charlesng35/campushub/internal/realtime"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
)

func requireAppError(t *testing.T, err error, status int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, status, appErr.StatusCode)
	return appErr
}

func classIDs(items []ClassSummary) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestClassServiceEnrollRefreshesLists(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Alan Turing")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Joan Clarke")
	algebra := testutil.CreateClass(t, db, teacher.ID, "Algebra")
	biology := testutil.CreateClass(t, db, teacher.ID, "Biology")

	svc, err := NewClassService(db, nil, nil)
	require.NoError(t, err)

	viewer := Viewer{UserID: student.ID, Role: models.RoleStudent}

	explore, err := svc.ListExplore(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, []string{algebra.ID, biology.ID}, classIDs(explore))

	lists, err := svc.Enroll(ctx, viewer, algebra.ID)
	require.NoError(t, err)
	require.Equal(t, []string{algebra.ID}, classIDs(lists.Enrolled))
	require.Equal(t, []string{biology.ID}, classIDs(lists.Explore))
	require.EqualValues(t, 1, lists.Enrolled[0].EnrolledCount)
	require.Equal(t, "Alan Turing", lists.Enrolled[0].TeacherName)
	require.Equal(t, "Not defined", lists.Enrolled[0].DepartmentName)

	_, err = svc.Enroll(ctx, viewer, algebra.ID)
	requireAppError(t, err, http.StatusConflict)

	owned, err := svc.ListOwned(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
}

func TestClassServiceEnrollRules(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Teacher")
	first := testutil.CreateUser(t, db, models.RoleStudent, "First")
	second := testutil.CreateUser(t, db, models.RoleStudent, "Second")
	class := testutil.CreateClass(t, db, teacher.ID, "Seminar")
	require.NoError(t, db.Model(class).Update("max_students", 1).Error)

	svc, err := NewClassService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, class.ID)
	requireAppError(t, err, http.StatusForbidden)

	_, err = svc.Enroll(ctx, Viewer{UserID: first.ID, Role: models.RoleStudent}, "missing")
	requireAppError(t, err, http.StatusNotFound)

	_, err = svc.Enroll(ctx, Viewer{UserID: first.ID, Role: models.RoleStudent}, class.ID)
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, Viewer{UserID: second.ID, Role: models.RoleStudent}, class.ID)
	appErr := requireAppError(t, err, http.StatusConflict)
	require.Equal(t, "Class is full", appErr.Message)
}

func TestEnrollLocksClassRow(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=campushub dbname=campushub sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	stmt := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var class models.Class
		return lockClassRow(tx, "class-1").Take(&class)
	})
	require.Contains(t, stmt, `FROM "classes"`)
	require.Contains(t, stmt, "FOR UPDATE")
}

func TestClassServiceCreate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	dept := testutil.CreateDepartment(t, db, "Physics")
	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Lise Meitner")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Student")

	svc, err := NewClassService(db, nil, nil)
	require.NoError(t, err)

	in := forms.ClassInput{
		Name:          "Nuclear Physics",
		Code:          "PHY300",
		Credits:       4,
		DurationHours: 2,
		MaxStudents:   40,
		Semesters:     []int{3},
		DepartmentIDs: []string{dept.ID},
	}

	_, err = svc.Create(ctx, Viewer{UserID: student.ID, Role: models.RoleStudent}, in)
	requireAppError(t, err, http.StatusForbidden)

	class, err := svc.Create(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, in)
	require.NoError(t, err)
	require.Equal(t, dept.ID, *class.DepartmentID)
	require.Equal(t, []int{3}, models.DecodeInts(class.Semesters))

	_, err = svc.Create(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, in)
	requireAppError(t, err, http.StatusConflict)

	in.Code = "PHY301"
	in.DepartmentIDs = []string{"unknown"}
	_, err = svc.Create(ctx, Viewer{UserID: teacher.ID, Role: models.RoleTeacher}, in)
	requireAppError(t, err, http.StatusBadRequest)
}

func TestClassServiceDetails(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Marie Curie")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Student")
	class := testutil.CreateClass(t, db, teacher.ID, "Chemistry")
	testutil.Enroll(t, db, class.ID, student.ID)

	require.NoError(t, db.Create(&models.Assignment{
		Title: "Lab", ClassID: class.ID, TeacherID: teacher.ID, DueAt: time.Now().Add(time.Hour), TotalPoints: 10, IsPublished: true,
	}).Error)
	require.NoError(t, db.Create(&models.Assignment{
		Title: "Draft", ClassID: class.ID, TeacherID: teacher.ID, DueAt: time.Now().Add(time.Hour), TotalPoints: 10,
	}).Error)
	require.NoError(t, db.Create(&models.Post{
		Content: "Welcome", AuthorID: teacher.ID, ClassID: &class.ID, Visibility: models.PostVisibilityClass,
	}).Error)
	require.NoError(t, db.Create(&models.ChatRoom{
		Name: "Chemistry chat", Type: models.ChatRoomClass, ClassID: &class.ID, CreatedBy: teacher.ID,
	}).Error)

	svc, err := NewClassService(db, nil, nil)
	require.NoError(t, err)

	details, err := svc.Details(ctx, class.ID)
	require.NoError(t, err)
	require.Equal(t, "Marie Curie", details.TeacherName)
	require.Equal(t, "Not defined", details.DepartmentName)
	require.EqualValues(t, 1, details.EnrollmentCount)
	require.Len(t, details.Assignments, 1)
	require.Len(t, details.Posts, 1)
	require.Empty(t, details.Announcements)
	require.Len(t, details.Discussions, 1)

	_, err = svc.Details(ctx, "missing")
	requireAppError(t, err, http.StatusNotFound)

	ok, err := svc.CanAccess(ctx, Viewer{UserID: student.ID, Role: models.RoleStudent}, class.ID)
	require.NoError(t, err)
	require.True(t, ok)

	outsider := testutil.CreateUser(t, db, models.RoleStudent, "Outsider")
	require.False(t, svc.AuthorizeStream(outsider.ID, realtime.ClassStream(class.ID, realtime.KindPosts)))
	require.True(t, svc.AuthorizeStream(student.ID, realtime.ClassStream(class.ID, realtime.KindPosts)))
	require.True(t, svc.AuthorizeStream(outsider.ID, realtime.StreamNotifications))
}

func TestClassServiceWatch(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Teacher")
	class := testutil.CreateClass(t, db, teacher.ID, "Astronomy")

	hub := realtime.NewHub()
	svc, err := NewClassService(db, hub, NewChangePublisher(hub, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *ClassDetails, 8)
	watch, err := svc.Watch(ctx, class.ID, func(details *ClassDetails, err error) {
		if err != nil {
			t.Errorf("reload class details: %v", err)
			return
		}
		updates <- details
	})
	require.NoError(t, err)

	for _, kind := range realtime.ClassKinds {
		require.Equal(t, 1, hub.ListenerCount(realtime.ClassStream(class.ID, kind)))
	}

	require.NoError(t, db.Create(&models.Post{
		Content: "Eclipse tonight", AuthorID: teacher.ID, ClassID: &class.ID, Visibility: models.PostVisibilityClass,
	}).Error)
	svc.events.ClassChanged(ctx, class.ID, realtime.KindPosts, "post.created", nil)

	select {
	case details := <-updates:
		require.Len(t, details.Posts, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("expected class details refresh")
	}

	watch.Close()
	watch.Close()
	for _, kind := range realtime.ClassKinds {
		require.Zero(t, hub.ListenerCount(realtime.ClassStream(class.ID, kind)))
	}
}

func TestClassServiceWatchStopsOnContextCancel(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Teacher")
	class := testutil.CreateClass(t, db, teacher.ID, "Geology")

	hub := realtime.NewHub()
	svc, err := NewClassService(db, hub, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	watch, err := svc.Watch(ctx, class.ID, func(*ClassDetails, error) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-watch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	require.Zero(t, hub.ListenerCount(realtime.ClassStream(class.ID, realtime.KindMessages)))
}
