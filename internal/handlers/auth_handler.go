package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopauth/internal/middleware"
	"shopauth/internal/models"
	"shopauth/internal/services"
)

type AuthHandler struct {
	auth services.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log.Named("http")}
}

// @Summary      Регистрация
// @Description  Создаёт пользователя с ролью user и сразу выдаёт токен
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Данные пользователя"
// @Success      201   {object}  models.Session
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, h.log, "register", &req) {
		return
	}
	session, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, "register", err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// @Summary      Вход в систему
// @Description  Проверяет email и пароль, возвращает токен. Неверный email и неверный пароль неразличимы
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Данные для входа"
// @Success      200   {object}  models.Session
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, h.log, "login", &req) {
		return
	}
	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, "login", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// @Summary      Профиль
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrInvalidToken.Error()})
		return
	}
	user, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, "profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary      Выход
// @Description  Отзывает токен, если включён список отзыва; иначе просто подтверждение
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.CtxToken)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		respondError(c, h.log, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// @Summary      Забыли пароль
// @Description  Отправляет одноразовый код на email. Ответ одинаковый для известных и неизвестных адресов, если не отключено в конфиге
// @Tags         Password reset
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Email"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if !bindJSON(c, h.log, "forgot-password", &req) {
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, "forgot-password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, an OTP has been sent to it"})
}

// @Summary      Проверка кода
// @Description  Проверяет код без его погашения
// @Tags         Password reset
// @Accept       json
// @Produce      json
// @Param        body  body      models.VerifyOTPRequest  true  "Email, код и тип"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if !bindJSON(c, h.log, "verify-otp", &req) {
		return
	}
	if err := h.auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP, req.Type); err != nil {
		respondError(c, h.log, "verify-otp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully"})
}

// @Summary      Сброс пароля
// @Tags         Password reset
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Email, код и новый пароль"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, h.log, "reset-password", &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		respondError(c, h.log, "reset-password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// @Summary      Запрос подтверждения email
// @Tags         Email verification
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /auth/request-verification [post]
func (h *AuthHandler) RequestVerification(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": services.ErrInvalidToken.Error()})
		return
	}
	if err := h.auth.RequestEmailVerification(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, "request-verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email"})
}

// @Summary      Подтверждение email
// @Tags         Email verification
// @Accept       json
// @Produce      json
// @Param        body  body      models.ConfirmEmailRequest  true  "Email и код"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /auth/confirm-email [post]
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	var req models.ConfirmEmailRequest
	if !bindJSON(c, h.log, "confirm-email", &req) {
		return
	}
	if err := h.auth.ConfirmEmail(c.Request.Context(), req.Email, req.OTP); err != nil {
		respondError(c, h.log, "confirm-email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}
