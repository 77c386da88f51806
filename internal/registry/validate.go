package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/buildgridgo/internal/ctxlog"
)

// ValidateRegistry checks that every registered input struct can be bound
// from script arguments. All problems are reported at once.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		action, _ := r.Action(name)
		if action.NewInput == nil {
			continue
		}
		fields, err := InputFields(action.NewInput())
		if err != nil {
			errs = append(errs, fmt.Sprintf("action '%s': %v", name, err))
			continue
		}
		if len(fields) == 0 {
			logger.Debug("Action input declares no arguments.", "action", name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
