package mcp

import (
	"fmt"

	"github.com/felixgeelhaar/forkadmin/internal/domain/cronjob"
	"github.com/felixgeelhaar/forkadmin/internal/domain/module"
)

// MaxHistoryLimit bounds forkadmin_cronjob_history.
const MaxHistoryLimit = 500

// ValidateCronjobRunInput validates CronjobRunInput fields.
func ValidateCronjobRunInput(in *CronjobRunInput) error {
	if _, err := module.NewName(in.Module); err != nil {
		return fmt.Errorf("invalid module: %w", err)
	}
	if _, err := module.NewName(in.Action); err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}
	for _, reserved := range []string{cronjob.ParamModule, cronjob.ParamAction, cronjob.ParamLanguage} {
		if _, ok := in.Params[reserved]; ok {
			return fmt.Errorf("invalid params: %q must be passed as its own field", reserved)
		}
	}
	return nil
}

// ValidateCronjobHistoryInput validates CronjobHistoryInput fields.
func ValidateCronjobHistoryInput(in *CronjobHistoryInput) error {
	if in.Module != "" {
		if _, err := module.NewName(in.Module); err != nil {
			return fmt.Errorf("invalid module: %w", err)
		}
	}
	if in.Limit < 0 || in.Limit > MaxHistoryLimit {
		return fmt.Errorf("invalid limit: must be between 0 and %d", MaxHistoryLimit)
	}
	return nil
}
