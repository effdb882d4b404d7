package workflows

import (
	"context"
	"sort"
)

// RemoteEntry is one name found in the remote location.
type RemoteEntry struct {
	Name string `json:"name"`

	// Managed is true when the manifest has an item with this name.
	Managed bool `json:"managed"`
}

// ListResult contains the remote names visible in the location.
type ListResult struct {
	Backend  string        `json:"backend"`
	Location string        `json:"location"`
	Entries  []RemoteEntry `json:"entries"`

	// Missing lists manifest items that have no remote entry.
	Missing []string `json:"missing,omitempty"`
}

// List asks the backend which entries exist in the configured location and
// matches them against the manifest.
func List(ctx context.Context, env *Env) (*ListResult, error) {
	s, err := env.open(true)
	if err != nil {
		return nil, err
	}

	names, err := s.remote.List(ctx, s.location)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	result := &ListResult{Backend: s.remote.Name(), Location: s.location.String()}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		_, managed := s.manifest.Get(name)
		seen[name] = true
		result.Entries = append(result.Entries, RemoteEntry{Name: name, Managed: managed})
	}
	for _, item := range s.manifest.Items {
		if !seen[item.Name] {
			result.Missing = append(result.Missing, item.Name)
		}
	}
	return result, nil
}
