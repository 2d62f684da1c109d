package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/fsms-platform/fsms-service/pkg/errors"
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

		// Set as Gin's default validator
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustomValidators(v)
		}
	})

	return validate
}

func registerCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("batch_number", validateBatchNumber)
	_ = v.RegisterValidation("product_type", validateProductType)
	_ = v.RegisterValidation("process_id", validateProcessID)
	_ = v.RegisterValidation("change_id", validateChangeID)
	_ = v.RegisterValidation("severity", validateSeverity)
	_ = v.RegisterValidation("likelihood", validateLikelihood)
	_ = v.RegisterValidation("safe_string", validateSafeString)

	// Use JSON tag names for error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
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
	batchNumberRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{3,49}$`)
	processIDRegex   = regexp.MustCompile(`^PROC-[a-zA-Z0-9]{8,}$`)
	changeIDRegex    = regexp.MustCompile(`^CHG-[a-zA-Z0-9]{8,}$`)
	safeStringRegex  = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?@#$%&*()+=:;'"<>\/\[\]{}|\\~\x60]+$`)
)

func validateBatchNumber(fl validator.FieldLevel) bool {
	return batchNumberRegex.MatchString(fl.Field().String())
}

func validateProductType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	validTypes := map[string]bool{
		"fresh_milk": true,
		"yoghurt":    true,
		"mala":       true,
		"cheese":     true,
	}
	return validTypes[value]
}

func validateProcessID(fl validator.FieldLevel) bool {
	return processIDRegex.MatchString(fl.Field().String())
}

func validateChangeID(fl validator.FieldLevel) bool {
	return changeIDRegex.MatchString(fl.Field().String())
}

func validateSeverity(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	validSeverities := map[string]bool{
		"negligible":   true,
		"minor":        true,
		"moderate":     true,
		"major":        true,
		"catastrophic": true,
	}
	return validSeverities[value]
}

func validateLikelihood(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	validLikelihoods := map[string]bool{
		"rare":           true,
		"unlikely":       true,
		"possible":       true,
		"likely":         true,
		"almost_certain": true,
	}
	return validLikelihoods[value]
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
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "batch_number":
		return "must be a valid batch number (uppercase alphanumeric with dashes)"
	case "product_type":
		return "must be one of: fresh_milk, yoghurt, mala, cheese"
	case "process_id":
		return "must be a valid process ID (format: PROC-xxxxxxxx)"
	case "change_id":
		return "must be a valid change request ID (format: CHG-xxxxxxxx)"
	case "severity":
		return "must be one of: negligible, minor, moderate, major, catastrophic"
	case "likelihood":
		return "must be one of: rare, unlikely, possible, likely, almost_certain"
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

// ContentType middleware ensures proper content type for POST/PUT/PATCH
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if contentType == "" || !strings.HasPrefix(contentType, "application/json") {
				// Allow empty body for state-transition endpoints
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
