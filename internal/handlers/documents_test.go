package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/campushub/internal/handlers/testutil"
	"github.com/charlesng35/campushub/internal/models"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestDocumentHandler_UploadListAndServe(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher, token := env.SignInAs(models.RoleTeacher, "Grace Hopper")
	class := env.CreateClass(teacher.ID, "Compilers")

	resp := env.Upload("/api/documents", map[string]string{
		"name":        "Syllabus",
		"description": "Course outline",
		"class_id":    class.ID,
	}, []testutil.MultipartFile{{Field: "file", Filename: "syllabus.pdf", Content: samplePDF}}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var document models.Document
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &document)
	require.Equal(t, "Syllabus", document.Name)
	require.Equal(t, "application/pdf", document.MimeType)
	require.EqualValues(t, len(samplePDF), document.FileSize)
	require.True(t, strings.HasPrefix(document.FileURL, "/files/documents/"), document.FileURL)
	require.True(t, strings.HasSuffix(document.FileURL, ".pdf"), document.FileURL)

	served := env.Request(http.MethodGet, document.FileURL, nil, "")
	require.Equal(t, http.StatusOK, served.Code)
	require.Equal(t, samplePDF, served.Body.Bytes())

	list := env.Request(http.MethodGet, "/api/documents?filter=mine&q=syllab", nil, token)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	var documents []models.Document
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &documents)
	require.Len(t, documents, 1)
	require.Equal(t, document.ID, documents[0].ID)
}

func TestDocumentHandler_UploadRejectsUnsupportedType(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.SignInAs(models.RoleTeacher, "Grace Hopper")

	// The declared .pdf name does not matter; the content is sniffed.
	resp := env.Upload("/api/documents", nil, []testutil.MultipartFile{{
		Field:    "file",
		Filename: "fake.pdf",
		Content:  []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff},
	}}, token)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.Code, resp.Body.String())

	var count int64
	require.NoError(t, env.DB.Model(&models.Document{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDocumentHandler_UploadRequiresClassMembership(t *testing.T) {
	env := testutil.NewEnv(t)
	teacher := env.CreateUser(models.RoleTeacher, "Grace Hopper")
	class := env.CreateClass(teacher.ID, "Compilers")
	_, token := env.SignInAs(models.RoleStudent, "Alan Turing")

	resp := env.Upload("/api/documents", map[string]string{"class_id": class.ID},
		[]testutil.MultipartFile{{Field: "file", Filename: "notes.pdf", Content: samplePDF}}, token)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	missing := env.Upload("/api/documents", nil, nil, token)
	require.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestDocumentHandler_HiddenDocumentsOnlyVisibleToUploader(t *testing.T) {
	env := testutil.NewEnv(t)
	_, ownerToken := env.SignInAs(models.RoleTeacher, "Grace Hopper")
	_, otherToken := env.SignInAs(models.RoleStudent, "Ada Lovelace")

	resp := env.Upload("/api/documents", map[string]string{"name": "Answer key"},
		[]testutil.MultipartFile{{Field: "file", Filename: "key.pdf", Content: samplePDF}}, ownerToken)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var document models.Document
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &document)

	hide := env.Request(http.MethodPatch, "/api/documents/"+document.ID, map[string]bool{"hidden": true}, ownerToken)
	require.Equal(t, http.StatusOK, hide.Code, hide.Body.String())

	var visible []models.Document
	other := env.Request(http.MethodGet, "/api/documents", nil, otherToken)
	require.Equal(t, http.StatusOK, other.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, other).Data, &visible)
	require.Empty(t, visible)

	owner := env.Request(http.MethodGet, "/api/documents", nil, ownerToken)
	require.Equal(t, http.StatusOK, owner.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, owner).Data, &visible)
	require.Len(t, visible, 1)

	forbidden := env.Request(http.MethodDelete, "/api/documents/"+document.ID, nil, otherToken)
	require.Equal(t, http.StatusForbidden, forbidden.Code)

	deleted := env.Request(http.MethodDelete, "/api/documents/"+document.ID, nil, ownerToken)
	require.Equal(t, http.StatusOK, deleted.Code, deleted.Body.String())
}
