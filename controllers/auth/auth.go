package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"guesthouse-booking/controllers/response"
	"guesthouse-booking/logger"
	"guesthouse-booking/middleware"
	"guesthouse-booking/repository"
	"guesthouse-booking/types"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	admins repository.AdminStore
	jwt    *middleware.JWTAuth
	now    func() time.Time
}

func NewAuthController(admins repository.AdminStore, jwt *middleware.JWTAuth) *AuthController {
	return &AuthController{admins: admins, jwt: jwt, now: time.Now}
}

// Helper function to set secure cookies based on environment
func (h *AuthController) setSecureCookie(c *fiber.Ctx, name, value string, maxAge int) {
	isProduction := os.Getenv("APP_ENV") == "production"

	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		Secure:   isProduction,
		SameSite: "Strict",
		MaxAge:   maxAge,
		Path:     "/",
	})
}

func (h *AuthController) Login(c *fiber.Ctx) error {
	var req types.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
		return response.BadRequest(c, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return response.BadRequest(c, "username and password are required")
	}

	admin, err := h.admins.FindAdminByUsername(c.Context(), req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return response.Error(c, err, "Failed to login")
	}
	// same answer for unknown user and wrong password
	if admin == nil || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		logger.Warning(fmt.Sprintf("Failed login attempt for %q", req.Username))
		return response.JSON(c, fiber.StatusUnauthorized, "Invalid username or password", nil)
	}

	token, expiresAt, err := h.jwt.IssueToken(admin.ID, admin.Username, admin.Permissions)
	if err != nil {
		return response.Error(c, err, "Failed to issue token")
	}
	if err := h.admins.TouchLastLogin(c.Context(), admin.ID, h.now()); err != nil {
		logger.Error("Failed to record last login", err)
	}

	h.setSecureCookie(c, "access", token, int(time.Until(expiresAt).Seconds()))
	logger.Success(fmt.Sprintf("Admin %s logged in", admin.Username))
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "Login successful",
		Status:  fiber.StatusOK,
		Token:   token,
		Data: types.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			Username:  admin.Username,
		},
	})
}

func (h *AuthController) Logout(c *fiber.Ctx) error {
	h.setSecureCookie(c, "access", "", -1)
	return response.JSON(c, fiber.StatusOK, "Logout successful", nil)
}
