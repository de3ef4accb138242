package common

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalidCredentials = errors.New("invalid mobile number or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrMobileExists       = errors.New("mobile number already registered")
	ErrInvalidRole        = errors.New("unknown role")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrEmiNotFound        = errors.New("installment not found")
	ErrEmiAlreadyPaid     = errors.New("installment already paid")
	ErrNotACustomer       = errors.New("loan holder must have the customer role")
	ErrNotAnAgent         = errors.New("collector must have the agent role")
)

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func SuccessResponse(c *fiber.Ctx, statusCode int, data any) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

func ErrorResponse(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}
