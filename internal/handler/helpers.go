package handler

import (
	"net/http"
	"reflect"

	"restopos/internal/apierror"
	"restopos/internal/middleware"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false after writing the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Namespace()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError answers domain errors with their kind's status; anything else
// is handed to middleware.ErrorHandler as a 500.
func respondError(c *gin.Context, err error) {
	if e, ok := apierror.As(err); ok {
		c.JSON(e.Kind.Status(), e.Envelope())
		return
	}
	_ = c.Error(err)
}

// actorFrom builds the service actor from the verified token claims.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return service.Actor{}, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Token sin identidad valida"))
		return service.Actor{}, false
	}
	return service.Actor{UsuarioID: id, Rol: claims.Rol}, true
}

// uuidParam parses a path parameter, answering 400 when it is not a UUID.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}
