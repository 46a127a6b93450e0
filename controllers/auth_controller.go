package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/middleware"
	"smartcrm/models"
	"smartcrm/services"
	"smartcrm/utils"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

type AuthController struct {
	Users  *services.UserService
	Logger *logrus.Entry
}

func NewAuthController(users *services.UserService, logger *logrus.Entry) *AuthController {
	return &AuthController{Users: users, Logger: logger}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	user, err := ac.Users.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, ac.Logger, err)
	}

	return ac.issueTokens(c, fiber.StatusCreated, user)
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	user, err := ac.Users.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, ac.Logger, err)
	}

	return ac.issueTokens(c, fiber.StatusOK, user)
}

// RefreshToken swaps a refresh token for a new token pair.
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	claims, err := utils.ParseJWTToken(req.RefreshToken)
	if err != nil || !claims.IsRefresh() {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", nil)
	}

	user, err := ac.Users.Get(c.UserContext(), claims.UserID)
	if err != nil || !user.IsActive || user.TokenVersion != claims.TokenVersion {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid refresh token", nil)
	}

	return ac.issueTokens(c, fiber.StatusOK, user)
}

// Logout revokes every token issued to the caller so far.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := ac.Users.Logout(c.UserContext(), user.ID); err != nil {
		return respondError(c, ac.Logger, err)
	}

	c.ClearCookie("access_token")
	utils.LogEvent("user_logout", map[string]interface{}{
		"user_id":    user.ID,
		"session_id": c.Locals("sessionID"),
	})
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Successfully logged out"}))
}

func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(middleware.CurrentUser(c)))
}

// DeleteAccount removes the caller. Leads assigned to them lose their assignee.
func (ac *AuthController) DeleteAccount(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := ac.Users.Delete(c.UserContext(), user.ID); err != nil {
		return respondError(c, ac.Logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ac *AuthController) issueTokens(c *fiber.Ctx, status int, user *models.User) error {
	accessToken, refreshToken, err := utils.GenerateJWTToken(user)
	if err != nil {
		ac.Logger.WithError(err).WithField("user_id", user.ID).Error("Failed to generate tokens")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate tokens", nil)
	}

	return c.Status(status).JSON(utils.SuccessResponse(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}))
}
