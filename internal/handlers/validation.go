package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campushub/internal/forms"
	appErrors "github.com/charlesng35/campushub/pkg/errors"
	"github.com/charlesng35/campushub/pkg/response"
	appValidator "github.com/charlesng35/campushub/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if !bindJSON(c, dest) {
		return false
	}

	return validStruct(c, dest)
}

// validStruct runs struct validation and writes a 422 response on failure.
func validStruct(c *gin.Context, value any) bool {
	if err := appValidator.ValidateStruct(value); err != nil {
		response.Error(c, validationError(err))
		return false
	}
	return true
}

// bindJSON binds the payload without running validation, for requests driven through a form.
func bindJSON[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return true
}

// validationError converts validator and form failures into a 422 with per field details.
func validationError(err error) error {
	var failures appValidator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		return appErrors.NewValidation(failures.Fields())
	}

	var fieldErrs forms.FieldErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return appErrors.NewValidation(map[string]string(fieldErrs))
	}

	return appErrors.NewBadRequest("invalid request payload")
}

// submitForm drives a creation modal through open and submit. It writes the error response
// and returns false when either validation or the submit call fails.
func submitForm[T any](c *gin.Context, modal *forms.Modal[T], values T) bool {
	modal.Open()
	if err := modal.Submit(requestContext(c), values); err != nil {
		if errors.Is(err, forms.ErrInvalid) {
			response.Error(c, validationError(err))
			return false
		}
		response.Error(c, err)
		return false
	}
	return true
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolQuery(c *gin.Context, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && parsed
}
