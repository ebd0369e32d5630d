package events

import (
	"strings"
)

// FilterConfig defines event filtering rules
type FilterConfig struct {
	Exclude []string // Never notify about these projects
}

// Filter drops events the notifier has no template for
type Filter struct {
	config FilterConfig
}

var handledTypes = map[string]bool{
	TypePatchsetCreated: true,
	TypeCommentAdded:    true,
	TypeChangeMerged:    true,
}

// NewFilter creates a new event filter
func NewFilter(config FilterConfig) *Filter {
	return &Filter{config: config}
}

// ShouldProcess returns true if the record can produce a notification
func (f *Filter) ShouldProcess(r *Record) bool {
	if r == nil || !handledTypes[r.Type] {
		return false
	}

	if r.Project == "" {
		return false
	}

	for _, excl := range f.config.Exclude {
		if strings.TrimSpace(excl) == r.Project {
			return false
		}
	}

	return true
}
