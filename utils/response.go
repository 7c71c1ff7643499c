package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response. Code is 0 on success and a five digit
// status-prefixed code otherwise.
type Envelope struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Page is the data of a paginated listing.
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Respond writes an envelope, echoing the request id set by the request id middleware.
func Respond(ctx *gin.Context, status, code int, message string, data interface{}) {
	ctx.JSON(status, Envelope{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: ctx.GetString(RequestIDKey),
	})
}

// Success writes a 200 envelope.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Paginated writes a 200 envelope around one page of items.
func Paginated(ctx *gin.Context, items interface{}, total int64, page, pageSize int) {
	Success(ctx, Page{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Error writes an envelope without data and aborts the remaining handlers.
func Error(ctx *gin.Context, status, code int, message string) {
	ctx.Abort()
	Respond(ctx, status, code, message, nil)
}
