package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/handlers/testutil"
	"github.com/charlesng35/campushub/internal/models"
)

func TestClassHandler_CreateRejectsInvalidForm(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher, token := env.SignInAs(models.RoleTeacher, "Grace Hopper")

	resp := env.Request(http.MethodPost, "/api/classes", map[string]any{
		"name": "  ",
		"code": "",
	}, token)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())

	decoded := testutil.DecodeResponse(t, resp)
	require.NotNil(t, decoded.Error)
	details, ok := decoded.Error.Details.(map[string]any)
	require.True(t, ok, "expected field errors, got %#v", decoded.Error.Details)
	require.Contains(t, details, "name")
	require.Contains(t, details, "code")

	var count int64
	require.NoError(t, env.DB.Model(&models.Class{}).Where("teacher_id = ?", teacher.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestClassHandler_CreateAndListOwned(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.SignInAs(models.RoleTeacher, "Grace Hopper")

	var department models.Department
	require.NoError(t, env.DB.Where("code = ?", "CS").Take(&department).Error)

	resp := env.Request(http.MethodPost, "/api/classes", map[string]any{
		"name":           "Compilers",
		"code":           "cs-401",
		"semesters":      []int{5, 6},
		"department_ids": []string{department.ID},
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var class models.Class
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &class)
	require.Equal(t, "CS-401", class.Code)
	require.Equal(t, 3, class.Credits)
	require.Equal(t, 30, class.MaxStudents)

	duplicate := env.Request(http.MethodPost, "/api/classes", map[string]any{
		"name":           "Compilers again",
		"code":           "CS-401",
		"semesters":      []int{5},
		"department_ids": []string{department.ID},
	}, token)
	require.Equal(t, http.StatusConflict, duplicate.Code, duplicate.Body.String())

	owned := env.Request(http.MethodGet, "/api/classes/owned", nil, token)
	require.Equal(t, http.StatusOK, owned.Code, owned.Body.String())
	var summaries []map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, owned).Data, &summaries)
	require.Len(t, summaries, 1)
	require.Equal(t, class.ID, summaries[0]["id"])
	require.Equal(t, "Computer Science", summaries[0]["department_name"])
}

func TestClassHandler_CreateRequiresTeacher(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.SignInAs(models.RoleStudent, "Ada Lovelace")

	resp := env.Request(http.MethodPost, "/api/classes", map[string]any{"name": "Nope"}, token)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestClassHandler_EnrollReturnsBothLists(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher := env.CreateUser(models.RoleTeacher, "Grace Hopper")
	first := env.CreateClass(teacher.ID, "Compilers")
	second := env.CreateClass(teacher.ID, "Databases")
	_, token := env.SignInAs(models.RoleStudent, "Ada Lovelace")

	explore := env.Request(http.MethodGet, "/api/classes/explore", nil, token)
	require.Equal(t, http.StatusOK, explore.Code, explore.Body.String())
	var before []map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, explore).Data, &before)
	require.Len(t, before, 2)

	resp := env.Request(http.MethodPost, "/api/classes/"+first.ID+"/enroll", nil, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var lists struct {
		Enrolled []map[string]any `json:"enrolled"`
		Explore  []map[string]any `json:"explore"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &lists)
	require.Len(t, lists.Enrolled, 1)
	require.Equal(t, first.ID, lists.Enrolled[0]["id"])
	require.Len(t, lists.Explore, 1)
	require.Equal(t, second.ID, lists.Explore[0]["id"])

	again := env.Request(http.MethodPost, "/api/classes/"+first.ID+"/enroll", nil, token)
	require.Equal(t, http.StatusConflict, again.Code)

	missing := env.Request(http.MethodPost, "/api/classes/00000000-0000-4000-8000-00000000ffff/enroll", nil, token)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestClassHandler_DetailsRequiresMembership(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher := env.CreateUser(models.RoleTeacher, "Grace Hopper")
	class := env.CreateClass(teacher.ID, "Compilers")

	member, memberToken := env.SignInAs(models.RoleStudent, "Ada Lovelace")
	env.Enroll(class.ID, member.ID)
	_, outsiderToken := env.SignInAs(models.RoleStudent, "Alan Turing")

	ok := env.Request(http.MethodGet, "/api/classes/"+class.ID, nil, memberToken)
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())
	var details struct {
		Class           models.Class `json:"class"`
		TeacherName     string       `json:"teacher_name"`
		EnrollmentCount int64        `json:"enrollment_count"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, ok).Data, &details)
	require.Equal(t, class.ID, details.Class.ID)
	require.Equal(t, "Grace Hopper", details.TeacherName)
	require.EqualValues(t, 1, details.EnrollmentCount)

	forbidden := env.Request(http.MethodGet, "/api/classes/"+class.ID, nil, outsiderToken)
	require.Equal(t, http.StatusForbidden, forbidden.Code)

	missing := env.Request(http.MethodGet, "/api/classes/00000000-0000-4000-8000-00000000ffff", nil, outsiderToken)
	require.Equal(t, http.StatusNotFound, missing.Code)
}
