package handlers

import (
	"github.com/gemcove/catalog-intake/internal/service/intake"
	"github.com/gemcove/catalog-intake/pkg/logger"
)

type Handlers struct {
	Intake *IntakeHandler
}

func NewHandlers(
	intakeService intake.IntakeManager,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Intake: NewIntakeHandler(intakeService, logger),
	}
}
