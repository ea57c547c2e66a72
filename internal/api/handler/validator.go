package handler

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/qs3c/gigmarket_server/internal/model"
)

// RegisterValidators 注册自定义 binding 校验规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("plan_tier", validatePlanTier)
}

func validatePlanTier(fl validator.FieldLevel) bool {
	return model.PlanTier(fl.Field().String()).Valid()
}
