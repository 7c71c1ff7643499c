package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hasanat/tracker/middleware"
	"github.com/hasanat/tracker/services"
	"github.com/hasanat/tracker/utils"
)

type errorMapping struct {
	status int
	code   int
}

var serviceErrors = map[string]errorMapping{
	services.ErrInvalidDate.Code:     {http.StatusBadRequest, 40010},
	services.ErrInvalidPrayer.Code:   {http.StatusBadRequest, 40011},
	services.ErrTimingsNotFound.Code: {http.StatusNotFound, 40410},
	services.ErrNoFastingLog.Code:    {http.StatusNotFound, 40411},
	services.ErrAlreadyLogged.Code:   {http.StatusConflict, 40910},
	services.ErrAlreadySet.Code:      {http.StatusConflict, 40911},
	services.ErrAlreadyBroken.Code:   {http.StatusConflict, 40912},
	services.ErrNotFasting.Code:      {http.StatusConflict, 40913},
	services.ErrTooEarly.Code:        {http.StatusUnprocessableEntity, 42210},
	services.ErrWindowClosed.Code:    {http.StatusUnprocessableEntity, 42211},
}

// respondError maps expected service outcomes to their status and code; anything else is logged
// and reported as an internal error with fallbackCode.
func respondError(ctx *gin.Context, err error, fallbackCode int, fallbackMessage string) {
	if svcErr, ok := services.AsError(err); ok {
		if m, found := serviceErrors[svcErr.Code]; found {
			utils.Error(ctx, m.status, m.code, svcErr.Message)
			return
		}
	}
	utils.Logger.Error(fallbackMessage,
		zap.String("path", ctx.FullPath()),
		zap.String(utils.RequestIDKey, ctx.GetString(utils.RequestIDKey)),
		zap.Error(err))
	utils.Error(ctx, http.StatusInternalServerError, fallbackCode, fallbackMessage)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func requireUser(ctx *gin.Context) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok || userID == 0 {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return 0, false
	}
	return userID, true
}
