package services

import (
	"fmt"

	apierrors "github.com/ImamSharif/Healthcare-analytics/internal/errors"
)

// Query validation errors. Each wraps apierrors.ErrInvalidInput.
var (
	ErrInvalidDimension = fmt.Errorf("%w: dimension", apierrors.ErrInvalidInput)
	ErrInvalidMeasure   = fmt.Errorf("%w: measure", apierrors.ErrInvalidInput)
	ErrInvalidPeriod    = fmt.Errorf("%w: period", apierrors.ErrInvalidInput)
	ErrInvalidFilter    = fmt.Errorf("%w: filter", apierrors.ErrInvalidInput)
)
