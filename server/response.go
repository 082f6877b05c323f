package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/fuisce/errors"
)

// Envelope is the JSON body of a successful response.
type Envelope struct {
	Data any   `json:"data"`
	Page *Page `json:"page,omitempty"`
}

// Page describes the slice of a list a response carries.
type Page struct {
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Total  int64 `json:"total"`
}

// Respond writes data in an Envelope with the given status.
func Respond(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Data: data})
}

// RespondList writes one page of a list with a 200 status.
func RespondList(c *gin.Context, items any, page Page) {
	c.JSON(http.StatusOK, Envelope{Data: items, Page: &page})
}

// RespondError writes err as an error body. An AppError in the chain keeps
// its status and code; any other error is sent as a 500.
func RespondError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}
