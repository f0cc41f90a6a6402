package forms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/models"
	apperrors "github.com/charlesng35/campushub/pkg/errors"
)

func TestModalLifecycle(t *testing.T) {
	var submitted []AnnouncementInput
	refreshed := 0

	modal := NewAnnouncementModal(func(ctx context.Context, in AnnouncementInput) error {
		submitted = append(submitted, in)
		return nil
	}, OnSuccess[AnnouncementInput](func() { refreshed++ }))

	require.Equal(t, StateClosed, modal.State())

	modal.Open()
	require.Equal(t, StateEditing, modal.State())
	require.Equal(t, models.VisibilityClass, modal.Values().Visibility)

	err := modal.Submit(context.Background(), AnnouncementInput{
		Title:   "  Midterm moved ",
		Content: "See you Thursday",
		ClassID: "class-1",
	})
	require.NoError(t, err)
	require.Equal(t, StateClosedSuccess, modal.State())
	require.Equal(t, 1, refreshed)
	require.Len(t, submitted, 1)
	require.Equal(t, "Midterm moved", submitted[0].Title)
	require.Equal(t, models.VisibilityClass, submitted[0].Visibility)
	require.Empty(t, modal.Values().Title)
}

func TestModalRequiredFieldSkipsSubmit(t *testing.T) {
	calls := 0
	modal := NewAnnouncementModal(func(ctx context.Context, in AnnouncementInput) error {
		calls++
		return nil
	})
	modal.Open()

	err := modal.Submit(context.Background(), AnnouncementInput{Title: "Hello"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalid)
	require.Zero(t, calls)
	require.Equal(t, StateEditing, modal.State())

	fields := modal.FieldErrors()
	require.Equal(t, "content is required", fields["content"])
	require.Equal(t, "class id is required", fields["class_id"])
	require.Equal(t, "Hello", modal.Values().Title)
}

func TestModalSubmitFailureKeepsValues(t *testing.T) {
	modal := NewPostModal(func(ctx context.Context, in PostInput) error {
		return apperrors.NewForbidden("You are not enrolled in this class")
	})
	modal.Open()

	in := PostInput{Content: "Study group tonight", ClassID: "class-9"}
	err := modal.Submit(context.Background(), in)
	require.Error(t, err)
	require.Equal(t, StateEditing, modal.State())
	require.Equal(t, "You are not enrolled in this class", modal.Notice())
	require.Equal(t, "class-9", modal.Values().ClassID)
	require.Empty(t, modal.FieldErrors())
}

func TestModalGenericFailureNotice(t *testing.T) {
	modal := NewPostModal(func(ctx context.Context, in PostInput) error {
		return errors.New("connection reset")
	})
	modal.Open()

	err := modal.Submit(context.Background(), PostInput{Content: "hi", Visibility: models.PostVisibilityAllUsers})
	require.Error(t, err)
	require.Equal(t, "Something went wrong. Please try again.", modal.Notice())
}

func TestModalSubmitRequiresEditing(t *testing.T) {
	modal := NewPostModal(func(ctx context.Context, in PostInput) error { return nil })

	err := modal.Submit(context.Background(), PostInput{Content: "hi", Visibility: models.PostVisibilityAllUsers})
	require.ErrorIs(t, err, ErrNotEditing)

	modal.Open()
	modal.Cancel()
	require.Equal(t, StateClosedCancel, modal.State())
	require.ErrorIs(t, modal.Submit(context.Background(), PostInput{}), ErrNotEditing)
}

func TestModalRulesRun(t *testing.T) {
	calls := 0
	modal := NewAssignmentModal(func(ctx context.Context, in AssignmentInput) error {
		calls++
		return nil
	}, WithRules(func(in AssignmentInput) FieldErrors {
		if !in.DueAt.IsZero() && in.DueAt.Before(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
			return FieldErrors{"due_at": "due date must be in the future"}
		}
		return nil
	}))
	modal.Open()

	err := modal.Submit(context.Background(), AssignmentInput{
		Title:       "Essay",
		Description: "Two pages",
		ClassID:     "class-1",
		DueAt:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	require.Zero(t, calls)
	require.Equal(t, "due date must be in the future", modal.FieldErrors()["due_at"])
}

func TestAssignmentPointsBounds(t *testing.T) {
	var got AssignmentInput
	modal := NewAssignmentModal(func(ctx context.Context, in AssignmentInput) error {
		got = in
		return nil
	})
	modal.Open()

	base := AssignmentInput{
		Title:       "Lab report",
		Description: "Write up",
		ClassID:     "class-1",
		DueAt:       time.Now().Add(48 * time.Hour),
	}

	over := base
	over.TotalPoints = 1001
	require.Error(t, modal.Submit(context.Background(), over))
	require.Equal(t, "total points must be at most 1000", modal.FieldErrors()["total_points"])

	require.NoError(t, modal.Submit(context.Background(), base))
	require.Equal(t, DefaultTotalPoints, got.TotalPoints)
}

func TestPostVisibilityRules(t *testing.T) {
	modal := NewPostModal(func(ctx context.Context, in PostInput) error { return nil })
	modal.Open()

	err := modal.Submit(context.Background(), PostInput{
		Content:    "Hello everyone",
		Visibility: models.PostVisibilityAllUsers,
		ClassID:    "class-1",
	})
	require.Error(t, err)
	require.Equal(t, "class id is not allowed here", modal.FieldErrors()["class_id"])

	err = modal.Submit(context.Background(), PostInput{Content: "Hello class"})
	require.Error(t, err)
	require.Contains(t, modal.FieldErrors(), "class_id")

	require.NoError(t, modal.Submit(context.Background(), PostInput{
		Content:    "Hello everyone",
		Visibility: models.PostVisibilityAllUsers,
		ImageURLs:  []string{" ", "/files/a.png"},
	}))
}

func TestClassInputValidation(t *testing.T) {
	var got ClassInput
	modal := NewClassModal(func(ctx context.Context, in ClassInput) error {
		got = in
		return nil
	})
	modal.Open()

	err := modal.Submit(context.Background(), ClassInput{Name: "Algebra", Code: "mth101", Credits: 21})
	require.Error(t, err)
	fields := modal.FieldErrors()
	require.Equal(t, "credits must be at most 20", fields["credits"])
	require.Contains(t, fields, "semesters")
	require.Contains(t, fields, "department_ids")

	err = modal.Submit(context.Background(), ClassInput{
		Name:          "Algebra",
		Code:          "mth101",
		Semesters:     []int{1, 2},
		DepartmentIDs: []string{"dept-a", "dept-b"},
	})
	require.NoError(t, err)
	require.Equal(t, "MTH101", got.Code)
	require.Equal(t, "dept-a", got.DepartmentID())
	require.Equal(t, DefaultMaxStudents, got.MaxStudents)
}
