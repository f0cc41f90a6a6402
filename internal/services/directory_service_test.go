package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/database"
	"github.com/charlesng35/campushub/internal/database/testutil"
	"github.com/charlesng35/campushub/internal/models"
)

func TestDirectoryServiceListsSeededCampus(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	ctx := context.Background()

	closed := &models.Campus{Name: "Old Annex", Timezone: "UTC"}
	require.NoError(t, db.Create(closed).Error)
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)

	svc, err := NewDirectoryService(db)
	require.NoError(t, err)

	campuses, err := svc.ListCampuses(ctx)
	require.NoError(t, err)
	require.Len(t, campuses, 1)
	require.Equal(t, database.DefaultCampusID, campuses[0].ID)

	departments, err := svc.ListDepartments(ctx, database.DefaultCampusID)
	require.NoError(t, err)
	names := make([]string, len(departments))
	for i, department := range departments {
		names[i] = department.Name
	}
	require.Equal(t, []string{"Computer Science", "Languages and Literature", "Mathematics"}, names)

	unscoped := testutil.CreateDepartment(t, db, "Astronomy")
	all, err := svc.ListDepartments(ctx, "  ")
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, unscoped.ID, all[0].ID)

	none, err := svc.ListDepartments(ctx, closed.ID)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestNewDirectoryServiceRequiresDB(t *testing.T) {
	_, err := NewDirectoryService(nil)
	require.Error(t, err)
}
