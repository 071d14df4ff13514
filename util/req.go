package util

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nutriscan/nutriscan-be/db"
)

type HTTPError struct {
	Status  int
	Message string
	// Err is the underlying cause. It is logged, never sent to the client.
	Err error
}

func (he *HTTPError) Error() string {
	return fmt.Sprintf("%v (statusCode=%v)", he.Message, he.Status)
}

var (
	DbHTTPErr = HTTPError{
		Message: "database error",
		Status:  http.StatusInternalServerError,
	}
	MalformedIdHTTPErr = HTTPError{
		Message: "id malformed",
		Status:  http.StatusBadRequest,
	}
	NotFoundHTTPErr = HTTPError{
		Message: "not found",
		Status:  http.StatusNotFound,
	}
	ConflictHTTPErr = HTTPError{
		Message: "already exists",
		Status:  http.StatusConflict,
	}
)

func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

type HandlerOpts struct {
	// SuccessStatus overrides the 200 sent on success.
	SuccessStatus int
}

type Handler func(c *gin.Context) (interface{}, *HTTPError)

// HandlerWrapper writes the handler's result in the {success, data|message} envelope.
func HandlerWrapper(handler Handler, opts *HandlerOpts) gin.HandlerFunc {
	status := http.StatusOK
	if opts != nil && opts.SuccessStatus != 0 {
		status = opts.SuccessStatus
	}
	return func(c *gin.Context) {
		data, httpErr := handler(c)
		if httpErr != nil {
			HandleHTTPErrorRes(c, httpErr)
			return
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(status, gin.H{
			"success": true,
			"data":    data,
		})
	}
}

/*
HandleHTTPErrorRes handles creating the appropriate response for the HTTP error.
break the route after calling this function
*/
func HandleHTTPErrorRes(c *gin.Context, err *HTTPError) {
	if err.Err != nil {
		_ = c.Error(err.Err)
	}
	c.AbortWithStatusJSON(err.Status, gin.H{
		"success": false,
		"message": err.Message,
	})
}

func BuildDbHTTPErr(err error) *HTTPError {
	var httpErr HTTPError
	switch {
	case errors.Is(err, db.ErrNotFound):
		httpErr = NotFoundHTTPErr
	case db.IsDupKeyErr(err):
		httpErr = ConflictHTTPErr
	default:
		httpErr = DbHTTPErr
	}
	httpErr.Err = err
	return &httpErr
}

func BuildJSONBindHTTPErr(err error) *HTTPError {
	message := "malformed request body"
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fieldErr := validationErrs[0]
		message = fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag())
	}
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

func ParseId(val string) (int64, *HTTPError) {
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return 0, &MalformedIdHTTPErr
	}
	return id, nil
}
