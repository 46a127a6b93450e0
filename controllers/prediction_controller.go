package controller

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"smartcrm/predictor"
	"smartcrm/utils"
)

type PredictionController struct {
	Predictor *predictor.Predictor
	Logger    *logrus.Entry
}

func NewPredictionController(p *predictor.Predictor, logger *logrus.Entry) *PredictionController {
	return &PredictionController{Predictor: p, Logger: logger}
}

// Predict scores the lead attributes in the request body. The body is a flat
// JSON object such as {"lead_source":"referral","has_demo":true}.
func (pc *PredictionController) Predict(c *fiber.Ctx) error {
	factors := predictor.Factors{}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &factors); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}

	result := pc.Predictor.Predict(factors)
	utils.PredictionsTotal.WithLabelValues(string(result.Confidence)).Inc()
	if result.Error != "" {
		pc.Logger.WithField("error", result.Error).Warn("Prediction fell back to neutral result")
	}

	return c.JSON(utils.SuccessResponse(result))
}

// GetFeatureImportance lists the maximum contribution of every factor.
func (pc *PredictionController) GetFeatureImportance(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(pc.Predictor.FeatureImportance()))
}
