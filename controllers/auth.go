package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/hospital-appointments/middleware"
	"github.com/meinhoongagan/hospital-appointments/models"
	"github.com/meinhoongagan/hospital-appointments/repository"
	"github.com/meinhoongagan/hospital-appointments/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UserResponse struct {
	ID    uint        `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	// Ref is the patient or doctor id used by the appointment routes.
	Ref uint `json:"ref"`
}

type AuthController struct {
	Users  repository.ParticipantRepository
	Tokens utils.TokenIssuer
	Logger *logrus.Logger
}

func NewAuthController(users repository.ParticipantRepository, tokens utils.TokenIssuer, logger *logrus.Logger) *AuthController {
	return &AuthController{Users: users, Tokens: tokens, Logger: logger}
}

// Login handles user authentication
func (h *AuthController) Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if ok, err := utils.BindAndValidate(c, input); !ok {
		return err
	}

	user, err := h.Users.FindUserByEmail(c.UserContext(), input.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.Fail(c, fiber.StatusUnauthorized, "Invalid credentials", "unauthorized")
	}
	if err != nil {
		return h.internal(c, "Login", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return utils.Fail(c, fiber.StatusUnauthorized, "Invalid credentials", "unauthorized")
	}

	ref, err := h.Users.ProfileRef(c.UserContext(), user)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.Fail(c, fiber.StatusForbidden, "Account has no patient or doctor profile", "forbidden")
	}
	if err != nil {
		return h.internal(c, "Login", err)
	}

	pair, err := h.Tokens.Issue(user, ref)
	if err != nil {
		return h.internal(c, "Login", err)
	}

	h.Logger.WithFields(logrus.Fields{
		"Function": "Login",
		"UserID":   user.ID,
		"Role":     user.Role,
	}).Info("User logged in")

	return c.JSON(fiber.Map{
		"token":        pair.Token,
		"refreshToken": pair.RefreshToken,
		"user": UserResponse{
			ID:    user.ID,
			Name:  user.FullName(),
			Email: user.Email,
			Role:  user.Role,
			Ref:   ref,
		},
	})
}

// RefreshToken generates a new access token using a refresh token
func (h *AuthController) RefreshToken(c *fiber.Ctx) error {
	req := new(RefreshRequest)
	if ok, err := utils.BindAndValidate(c, req); !ok {
		return err
	}
	token, err := h.Tokens.Refresh(req.RefreshToken)
	if err != nil {
		return utils.Fail(c, fiber.StatusUnauthorized, "Invalid refresh token", "unauthorized")
	}
	return c.JSON(utils.TokenPair{Token: token})
}

// GetUserProfile returns the current user's profile
func (h *AuthController) GetUserProfile(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return utils.Fail(c, fiber.StatusUnauthorized, "No authentication token", "unauthorized")
	}
	user, err := h.Users.FindUserByID(c.UserContext(), caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.Fail(c, fiber.StatusNotFound, "User not found", "not_found")
	}
	if err != nil {
		return h.internal(c, "GetUserProfile", err)
	}
	return c.JSON(UserResponse{
		ID:    user.ID,
		Name:  user.FullName(),
		Email: user.Email,
		Role:  user.Role,
		Ref:   caller.Ref,
	})
}

func (h *AuthController) internal(c *fiber.Ctx, op string, err error) error {
	h.Logger.WithFields(logrus.Fields{
		"Function": op,
		"Error":    err,
	}).Error("Request failed")
	return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", "internal_error")
}
