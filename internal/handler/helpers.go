package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"weconnect-crm/internal/apierror"
	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/middleware"
	"weconnect-crm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// gte=0 and lte=100 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Report fields by their JSON name so errors line up with the payload.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fieldPath(fe.Namespace())] = validationMessage(fe)
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// fieldPath drops the root struct name and embedded struct names from a
// validator namespace: "CreateDocumentRequest.DocumentFields.items[0].name"
// becomes "items[0].name".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	out := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "DocumentFields" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a UUID"
	case "len":
		return "must be " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	}
	return "failed " + fe.Tag()
}

// respondError maps service errors onto HTTP statuses. Anything that is
// not a domain error is logged and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var (
		ve *domain.ValidationError
		te *domain.InvalidTransitionError
		ue *domain.UnknownCurrencyOrTaxError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(ve.Fields))
	case errors.As(err, &ue):
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(domain.CodeUnknownCurrencyOrTax, ue.Error()).
			With("kind", ue.Kind).With("ref", ue.Ref))
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, apierror.WithCode(domain.CodeInvalidTransition, te.Error()).
			With("from", string(te.From)).With("to", string(te.To)))
	case errors.Is(err, domain.ErrConcurrentModification):
		c.JSON(http.StatusConflict, apierror.WithCode(domain.CodeConcurrentModification, "the document changed since you loaded it; reload and retry"))
	case errors.Is(err, domain.ErrNotInTrash):
		c.JSON(http.StatusConflict, apierror.WithCode(domain.CodeNotInTrash, err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.WithCode(domain.CodeNotFound, "resource not found"))
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

// parseID reads a UUID path parameter, writing a 400 when it is malformed.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}

// actor builds the audit identity from the JWT claims.
func actor(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.ID(), Role: claims.Role}
}
