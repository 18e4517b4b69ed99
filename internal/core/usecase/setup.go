package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

// SetupUseCase provisions collections and payload indexes. It is safe to run repeatedly.
type SetupUseCase struct {
	store ports.ContractStore
}

func NewSetupUseCase(store ports.ContractStore) *SetupUseCase {
	return &SetupUseCase{store: store}
}

func (uc *SetupUseCase) Setup(ctx context.Context) (domain.SetupReport, error) {
	report, err := uc.store.SetupSchema(ctx)
	if err != nil {
		return domain.SetupReport{}, fmt.Errorf("setup vector schema: %w", err)
	}
	return report, nil
}
