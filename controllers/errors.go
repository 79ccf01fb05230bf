package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-ordering/utils"
)

func respondServiceError(c *gin.Context, err error) {
	respondServiceErrorAs(c, err, "", "")
}

// respondServiceErrorAs maps service errors onto HTTP. clientCode replaces
// the code of validation and conflict errors and internalCode that of
// internal ones; empty means keep the default.
func respondServiceErrorAs(c *gin.Context, err error, clientCode, internalCode string) {
	appErr, ok := utils.AsAppError(err)
	if !ok {
		appErr = utils.NewInternalError("unexpected error", err)
	}

	switch appErr.Kind {
	case utils.KindNotFound:
		utils.RespondError(c, http.StatusNotFound, appErr.Code, appErr)
	case utils.KindValidation, utils.KindConflict:
		if clientCode != "" && clientCode != appErr.Code {
			utils.RespondErrorDetails(c, http.StatusBadRequest, clientCode, appErr, gin.H{"reason": appErr.Code})
			return
		}
		utils.RespondError(c, http.StatusBadRequest, appErr.Code, appErr)
	default:
		utils.ErrorLogger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  appErr.Error(),
		}).Error("request failed")
		code := utils.CodeInternal
		if internalCode != "" {
			code = internalCode
		}
		utils.RespondError(c, http.StatusInternalServerError, code, errors.New("internal server error"))
	}
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondBindingError reports request body problems field by field.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Namespace(), Message: "failed on " + fe.Tag()})
		}
		utils.RespondErrorDetails(c, http.StatusBadRequest, utils.CodeValidation, errors.New("invalid request data"), details)
		return
	}
	utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
}

// uuidParam reads a path parameter that must be a uuid, replying 400 if not.
func uuidParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if _, err := uuid.Parse(value); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New(name+" must be a valid uuid"))
		return "", false
	}
	return value, true
}
