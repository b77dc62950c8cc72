package tracker

import "errors"

// ErrInvalidInput is returned when target or source input fails validation.
var ErrInvalidInput = errors.New("tracker: invalid input")

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("tracker: not found")

// ErrDuplicateSource is returned when a source with the same name already exists.
var ErrDuplicateSource = errors.New("tracker: source with this name already exists")

// ErrNoRuleSet is returned when a target has no extraction rules: no
// per-target selectors and no built-in defaults for its source.
var ErrNoRuleSet = errors.New("tracker: no extraction rules for target")

// ErrRunInProgress is returned when a scrape run is triggered while another
// one is still executing.
var ErrRunInProgress = errors.New("tracker: scrape run already in progress")
