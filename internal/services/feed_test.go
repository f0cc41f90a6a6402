package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/cache"
	"github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/models"
)

func TestComposeFeedOrdering(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	src := FeedSources{
		Announcements: []models.Announcement{
			{BaseModel: models.BaseModel{ID: "a-normal", CreatedAt: now.Add(-time.Hour)}, Title: "Library hours"},
			{BaseModel: models.BaseModel{ID: "a-urgent", CreatedAt: now.Add(-3 * time.Hour)}, Title: "Exam moved", IsUrgent: true},
		},
		Posts: []models.Post{
			{BaseModel: models.BaseModel{ID: "p-1", CreatedAt: now.Add(-time.Minute)}, Content: "Study group?"},
		},
	}

	items := ComposeFeed(src, now, 48*time.Hour)
	require.Len(t, items, 3)
	require.Equal(t, "a-urgent", items[0].ID)
	require.True(t, items[0].IsUrgent)
	require.Equal(t, "a-normal", items[1].ID)
	require.Equal(t, "p-1", items[2].ID)
	require.Equal(t, FeedPost, items[2].Kind)
	require.Empty(t, items[2].Title)
}

func TestComposeFeedExpiredUrgentFallsBack(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	due := now.Add(24 * time.Hour)

	src := FeedSources{
		Announcements: []models.Announcement{
			{BaseModel: models.BaseModel{ID: "stale-urgent", CreatedAt: now.Add(-72 * time.Hour)}, IsUrgent: true},
			{BaseModel: models.BaseModel{ID: "recent", CreatedAt: now.Add(-2 * time.Hour)}},
		},
		Assignments: []models.Assignment{
			{BaseModel: models.BaseModel{ID: "as-1", CreatedAt: now.Add(-30 * time.Minute)}, DueAt: due},
		},
		Posts: []models.Post{
			{BaseModel: models.BaseModel{ID: "p-old", CreatedAt: now.Add(-5 * time.Hour)}},
		},
	}

	items := ComposeFeed(src, now, 48*time.Hour)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	require.Equal(t, []string{"recent", "stale-urgent", "as-1", "p-old"}, ids)
	require.NotNil(t, items[2].DueAt)
	require.True(t, items[2].DueAt.Equal(due))

	require.Empty(t, ComposeFeed(FeedSources{}, now, 0))
}

func TestFilterFeedByTab(t *testing.T) {
	items := []FeedItem{
		{ID: "1", Kind: FeedAnnouncement},
		{ID: "2", Kind: FeedPost},
		{ID: "3", Kind: FeedAssignment},
		{ID: "4", Kind: FeedPost},
	}

	require.Len(t, FilterFeed(items, TabAll), 4)
	posts := FilterFeed(items, TabPosts)
	require.Len(t, posts, 2)
	require.Equal(t, "2", posts[0].ID)
	require.Equal(t, "4", posts[1].ID)
	require.Len(t, FilterFeed(items, TabAssignments), 1)

	tab, ok := ParseFeedTab(" Announcements ")
	require.True(t, ok)
	require.Equal(t, TabAnnouncements, tab)
	tab, ok = ParseFeedTab("")
	require.True(t, ok)
	require.Equal(t, TabAll, tab)
	_, ok = ParseFeedTab("videos")
	require.False(t, ok)
}

func TestFeedServiceVisibilityAndCache(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	ctx := context.Background()

	dept := testutil.CreateDepartment(t, db, "Mathematics")
	otherDept := testutil.CreateDepartment(t, db, "Languages")
	teacher := testutil.CreateUser(t, db, models.RoleTeacher, "Emmy Noether")
	student := testutil.CreateUser(t, db, models.RoleStudent, "Sophie Germain")
	testutil.CreateStudentProfile(t, db, student.ID, &dept.ID)
	enrolled := testutil.CreateClass(t, db, teacher.ID, "Algebra")
	other := testutil.CreateClass(t, db, teacher.ID, "Topology")
	testutil.Enroll(t, db, enrolled.ID, student.ID)

	mk := func(title string, vis models.Visibility, classID, deptID *string) {
		require.NoError(t, db.Create(&models.Announcement{
			Title: title, Body: "body", AuthorID: teacher.ID,
			Visibility: vis, ClassID: classID, DepartmentID: deptID,
		}).Error)
	}
	mk("public", models.VisibilityPublic, nil, nil)
	mk("my class", models.VisibilityClass, &enrolled.ID, nil)
	mk("other class", models.VisibilityClass, &other.ID, nil)
	mk("my department", models.VisibilityDepartment, nil, &dept.ID)
	mk("other department", models.VisibilityDepartment, nil, &otherDept.ID)
	mk("private", models.VisibilityPrivate, nil, nil)

	require.NoError(t, db.Create(&models.Post{
		Content: "hello all", AuthorID: teacher.ID, Visibility: models.PostVisibilityAllUsers,
	}).Error)
	require.NoError(t, db.Create(&models.Post{
		Content: "topology only", AuthorID: teacher.ID, ClassID: &other.ID, Visibility: models.PostVisibilityClass,
	}).Error)
	require.NoError(t, db.Create(&models.Assignment{
		Title: "Groups", ClassID: enrolled.ID, TeacherID: teacher.ID,
		DueAt: time.Now().Add(72 * time.Hour), TotalPoints: 100, IsPublished: true,
	}).Error)
	require.NoError(t, db.Create(&models.Assignment{
		Title: "Unpublished", ClassID: enrolled.ID, TeacherID: teacher.ID,
		DueAt: time.Now().Add(72 * time.Hour), TotalPoints: 100,
	}).Error)

	feedCache := NewFeedCache(cache.NewDatabaseStore(db), time.Minute)
	svc, err := NewFeedService(db, feedCache, FeedConfig{})
	require.NoError(t, err)

	viewer, err := LoadViewer(ctx, db, student.ID)
	require.NoError(t, err)

	titles := func(items []FeedItem) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.Title+item.Content)
		}
		return out
	}

	announcements := svc.Feed(ctx, viewer, TabAnnouncements)
	require.ElementsMatch(t, []string{"publicbody", "my classbody", "my departmentbody"}, titles(announcements))

	posts := svc.Feed(ctx, viewer, TabPosts)
	require.Equal(t, []string{"hello all"}, titles(posts))

	assignments := svc.Feed(ctx, viewer, TabAssignments)
	require.Len(t, assignments, 1)
	require.Equal(t, "Groups", assignments[0].Title)
	require.Equal(t, "Algebra", assignments[0].Context)
	require.Equal(t, "Emmy Noether", assignments[0].Author.Name)

	cached, ok, err := feedCache.Load(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, 5)

	// A new class post is hidden until the class members' feeds are invalidated.
	require.NoError(t, db.Create(&models.Post{
		Content: "algebra notes", AuthorID: teacher.ID, ClassID: &enrolled.ID, Visibility: models.PostVisibilityClass,
	}).Error)
	require.Len(t, svc.Feed(ctx, viewer, TabPosts), 1)

	NewChangePublisher(nil, svc).ClassChanged(ctx, enrolled.ID, "posts", "post.created", nil)
	require.Len(t, svc.Feed(ctx, viewer, TabPosts), 2)

	require.NoError(t, db.Create(&models.Post{
		Content: "campus wide", AuthorID: teacher.ID, Visibility: models.PostVisibilityAllUsers,
	}).Error)
	require.Len(t, svc.Feed(ctx, viewer, TabPosts), 2)

	gen, err := feedCache.Generation(ctx)
	require.NoError(t, err)
	NewChangePublisher(nil, svc).GlobalChanged(ctx)
	next, err := feedCache.Generation(ctx)
	require.NoError(t, err)
	require.Equal(t, gen+1, next)
	require.Len(t, svc.Feed(ctx, viewer, TabPosts), 3)
}

func TestFeedServiceDegradesToEmpty(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	student := testutil.CreateUser(t, db, models.RoleStudent, "Student")

	svc, err := NewFeedService(db, nil, FeedConfig{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.Post{}))

	items := svc.Feed(context.Background(), Viewer{UserID: student.ID, Role: models.RoleStudent}, TabAll)
	require.NotNil(t, items)
	require.Empty(t, items)
}
