package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopauth/internal/middleware"
	"shopauth/internal/services"
)

const serverErrorMessage = "Server error"

// errorStatus: один статус на каждую доменную ошибку. Порядок важен только
// для обёрнутых ошибок, у которых в цепочке две записи.
var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrDuplicateEmail, http.StatusBadRequest},
	{services.ErrInvalidOrExpiredOTP, http.StatusBadRequest},
	{services.ErrInvalidPurpose, http.StatusBadRequest},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrAccountDeactivated, http.StatusUnauthorized},
	{services.ErrInvalidToken, http.StatusUnauthorized},
	{services.ErrExpiredToken, http.StatusUnauthorized},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrTooManyRequests, http.StatusTooManyRequests},
	{services.ErrDeliveryFailure, http.StatusBadGateway},
}

// statusFor maps err to a status and the message safe to show the client.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		// validation details are the caller's own input
		if e.err == services.ErrValidation {
			return e.status, err.Error()
		}
		return e.status, e.err.Error()
	}
	return http.StatusInternalServerError, serverErrorMessage
}

func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("op", op), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("op", op), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

// bindJSON decodes the body into dst. Validator text names Go fields, so the
// client only ever sees the generic validation message.
func bindJSON(c *gin.Context, log *zap.Logger, op string, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Debug("bad request body", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrValidation.Error()})
		return false
	}
	return true
}

func userIDFromCtx(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
