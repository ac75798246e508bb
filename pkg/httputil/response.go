package httputil

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/hospital-api/pkg/errors"
	pkgvalidator "github.com/jwalitptl/hospital-api/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Status  string                    `json:"status"`
	Code    string                    `json:"code,omitempty"`
	Message string                    `json:"message,omitempty"`
	Data    interface{}               `json:"data,omitempty"`
	Fields  []pkgvalidator.FieldError `json:"fields,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError maps err to its status and aborts the chain. Internal
// errors are attached to the context for logging and never echoed.
func RespondWithError(c *gin.Context, err error) {
	status, body := Render(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// Render builds the status and envelope for err.
func Render(err error) (int, Response) {
	var (
		appErr    *errors.AppError
		verrs     validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case stderrors.As(err, &verrs):
		return http.StatusBadRequest, Response{
			Status:  "error",
			Code:    "validation_error",
			Message: "request validation failed",
			Fields:  pkgvalidator.Fields(verrs),
		}
	case stderrors.As(err, &syntaxErr), stderrors.As(err, &typeErr):
		return http.StatusBadRequest, Response{
			Status:  "error",
			Code:    "validation_error",
			Message: "malformed request body",
		}
	case stderrors.As(err, &appErr):
		message := appErr.Message
		if appErr.Code == errors.ErrInternal {
			message = "internal server error"
		}
		return appErr.HTTPStatus(), Response{
			Status:  "error",
			Code:    appErr.Slug(),
			Message: message,
		}
	default:
		return http.StatusInternalServerError, Response{
			Status:  "error",
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}

// BindJSON decodes and validates the body, rendering the failure itself.
// It reports whether the handler should continue.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		switch {
		case stderrors.Is(err, io.EOF):
			err = errors.Validation("request body is required", err)
		case !isBindingError(err):
			err = errors.Validation(err.Error(), err)
		}
		RespondWithError(c, err)
		return false
	}
	return true
}

// BindQuery is BindJSON for query parameters.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		if !isBindingError(err) {
			err = errors.Validation(err.Error(), err)
		}
		RespondWithError(c, err)
		return false
	}
	return true
}

func isBindingError(err error) bool {
	var verrs validator.ValidationErrors
	return stderrors.As(err, &verrs)
}
