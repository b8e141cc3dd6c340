package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorClassifier maps a domain error to an HTTP status. It returns false
// when it does not recognise the error.
type ErrorClassifier func(err error) (int, bool)

// ErrorHandlerMiddleware renders handler errors as ErrorResponse bodies.
// fiber errors keep their code, classifiers are tried in order and anything
// else is a 500.
func ErrorHandlerMiddleware(classifiers ...ErrorClassifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := statusFor(err, classifiers)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusFor(err error, classifiers []ErrorClassifier) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, classify := range classifiers {
		if code, ok := classify(err); ok {
			return code
		}
	}
	return fiber.StatusInternalServerError
}
