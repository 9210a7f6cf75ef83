package constants

import (
	_ "embed"
	"encoding/json"
	"errors"
	"sync"
)

//go:embed suggestions.json
var suggestionsJSON []byte

var (
	suggestionTemplates map[string][]string
	errLoad             error
	once                = new(sync.Once)
)

// Load loads the suggestion templates from the embedded JSON
func Load() (map[string][]string, error) {
	once.Do(func() {
		suggestionTemplates = make(map[string][]string)
		if err := json.Unmarshal(suggestionsJSON, &suggestionTemplates); err != nil {
			errLoad = errors.Join(err, errors.New("failed to unmarshal embedded suggestions.json"))
			return
		}
	})
	return suggestionTemplates, errLoad
}

// SuggestionsFor returns the raw suggestion templates for a failure reason.
// Placeholders ({{package}}, {{domain}}, {{url}}, {{local_fingerprint}}) are
// rendered by the caller.
func SuggestionsFor(reason string) ([]string, bool) {
	_, err := Load()
	if err != nil {
		return nil, false
	}
	templates, ok := suggestionTemplates[reason]
	return templates, ok
}
