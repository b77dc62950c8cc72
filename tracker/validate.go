package tracker

import (
	"fmt"
	"net/url"
)

const (
	maxURLLen      = 4096
	maxNameLen     = 512
	maxSelectorLen = 1024
)

// validateTargetInput validates a target's fields before insert. Source and
// render defaults must already be applied.
func validateTargetInput(t *Target) error {
	if t.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if len(t.URL) > maxURLLen {
		return fmt.Errorf("%w: url exceeds %d characters", ErrInvalidInput, maxURLLen)
	}
	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be absolute http(s)", ErrInvalidInput)
	}
	if t.Render != "http" && t.Render != "browser" {
		return fmt.Errorf("%w: render must be \"http\" or \"browser\"", ErrInvalidInput)
	}
	for _, sel := range []string{t.NameSelector, t.PriceSelector, t.ImageSelector, t.AvailabilitySelector} {
		if len(sel) > maxSelectorLen {
			return fmt.Errorf("%w: selector exceeds %d characters", ErrInvalidInput, maxSelectorLen)
		}
	}
	return nil
}

// validateSourceInput validates a retailer entry before insert.
func validateSourceInput(s *Source) error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(s.Name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLen)
	}
	if s.Homepage != "" {
		u, err := url.Parse(s.Homepage)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: homepage must be absolute http(s)", ErrInvalidInput)
		}
	}
	return nil
}
