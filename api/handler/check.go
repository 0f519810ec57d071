package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/transwatch/models"
)

// Checker runs monitoring checks. *monitor.Runner satisfies it.
type Checker interface {
	Run(ctx context.Context) (*models.Report, error)
	Stats() models.RunStats
}

// Check returns a handler for POST /api/v1/check.
//
// The run is synchronous: the response carries the full report. A run that
// could not read the dashboard answers with the error code and the partial
// report.
func Check(checker Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := checker.Run(c.Request.Context())
		if err != nil {
			status, detail := errorResponse(err)
			c.JSON(status, models.CheckResponse{
				Success: false,
				Report:  report,
				Error:   detail,
			})
			return
		}

		c.JSON(http.StatusOK, models.CheckResponse{
			Success: true,
			Report:  report,
		})
	}
}

func errorResponse(err error) (int, *models.ErrorDetail) {
	var ce *models.CheckError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError, &models.ErrorDetail{
			Code:    models.ErrCodeInternal,
			Message: err.Error(),
		}
	}

	switch ce.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout, ce.ToDetail()
	case models.ErrCodeNavigation:
		return http.StatusBadGateway, ce.ToDetail()
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable, ce.ToDetail()
	default:
		return http.StatusInternalServerError, ce.ToDetail()
	}
}
