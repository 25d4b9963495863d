package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/marketplace-platform/order-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator initializes the validator with custom validators
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		registerCustomValidators(validate)

		// Use JSON tag names for error messages
		validate.RegisterTagNameFunc(jsonTagName)

		// Set as Gin's default validator
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustomValidators(v)
			v.RegisterTagNameFunc(jsonTagName)
		}
	})

	return validate
}

func registerCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("order_status", validateOrderStatus)
	_ = v.RegisterValidation("payment_method", validatePaymentMethod)
	_ = v.RegisterValidation("payment_status", validatePaymentStatus)
	_ = v.RegisterValidation("refund_status", validateRefundStatus)
	_ = v.RegisterValidation("tracking_number", validateTrackingNumber)
	_ = v.RegisterValidation("safe_string", validateSafeString)
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return fld.Name
	}
	return name
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	if validate == nil {
		return InitValidator()
	}
	return validate
}

// Custom validators

var (
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?@#$%&*()+=:;'"<>\/\[\]{}|\\~\x60]+$`)
)

func validateOrderStatus(fl validator.FieldLevel) bool {
	validStatuses := map[string]bool{
		"Pending":   true,
		"Paid":      true,
		"Shipped":   true,
		"Delivered": true,
		"Cancelled": true,
		"Refunded":  true,
	}
	return validStatuses[fl.Field().String()]
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	validMethods := map[string]bool{
		"credit_card":   true,
		"paypal":        true,
		"bank_transfer": true,
		"stripe":        true,
		"wallet":        true,
	}
	return validMethods[fl.Field().String()]
}

func validatePaymentStatus(fl validator.FieldLevel) bool {
	validStatuses := map[string]bool{
		"pending":   true,
		"succeeded": true,
		"failed":    true,
	}
	return validStatuses[fl.Field().String()]
}

func validateRefundStatus(fl validator.FieldLevel) bool {
	validStatuses := map[string]bool{
		"pending":  true,
		"approved": true,
		"rejected": true,
	}
	return validStatuses[fl.Field().String()]
}

func validateTrackingNumber(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	// Basic validation: 8-30 alphanumeric characters
	return len(value) >= 8 && len(value) <= 30
}

func validateSafeString(fl validator.FieldLevel) bool {
	return safeStringRegex.MatchString(fl.Field().String())
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			fields[field] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "email":
		return "must be a valid email address"
	case "order_status":
		return "must be one of: Pending, Paid, Shipped, Delivered, Cancelled, Refunded"
	case "payment_method":
		return "must be one of: credit_card, paypal, bank_transfer, stripe, wallet"
	case "payment_status":
		return "must be one of: pending, succeeded, failed"
	case "refund_status":
		return "must be one of: pending, approved, rejected"
	case "tracking_number":
		return "must be a valid tracking number (8-30 characters)"
	case "safe_string":
		return "contains invalid characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			fields := ValidationErrorFormatter(validationErrors)
			return errors.ErrValidationWithFields("validation failed", fields)
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(obj interface{}) *errors.AppError {
	v := GetValidator()
	if err := v.Struct(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			fields := ValidationErrorFormatter(validationErrors)
			return errors.ErrValidationWithFields("validation failed", fields)
		}
		return errors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}

// SanitizeString removes potentially dangerous characters from a string
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)

	return s
}

// InputSanitizer middleware sanitizes string inputs
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType middleware ensures proper content type for POST/PUT/PATCH
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if contentType == "" || !strings.HasPrefix(contentType, "application/json") {
				// Allow empty body for some endpoints
				if c.Request.ContentLength > 0 {
					AbortWithAppError(c, &errors.AppError{
						Code:       "INVALID_CONTENT_TYPE",
						Message:    "Content-Type must be application/json",
						HTTPStatus: 415,
					})
					return
				}
			}
		}
		c.Next()
	}
}
