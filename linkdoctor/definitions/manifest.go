package definitions

import "strings"

// Intent constants as they appear in dumpsys package output.
const (
	ActionView        = "android.intent.action.VIEW"
	CategoryDefault   = "android.intent.category.DEFAULT"
	CategoryBrowsable = "android.intent.category.BROWSABLE"
)

// PathType matches the PatternMatcher kinds printed by dumpsys.
type PathType string

const (
	PathLiteral PathType = "literal"
	PathPrefix  PathType = "prefix"
	PathGlob    PathType = "glob"
	PathNone    PathType = ""
)

type AuthorityInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"` // -1 when the filter does not constrain it
}

type PathPatternInfo struct {
	Type    PathType `json:"type"`
	Pattern string   `json:"pattern"`
}

// IntentDataInfo is one scheme x path combination of a filter. When a filter
// declares no paths the path fields stay empty; when it declares no schemes
// the scheme stays empty.
type IntentDataInfo struct {
	Scheme   string   `json:"scheme,omitempty"`
	Path     string   `json:"path,omitempty"`
	PathType PathType `json:"path_type,omitempty"`
}

type IntentFilterInfo struct {
	Activity    string            `json:"activity"`
	Actions     []string          `json:"actions,omitempty"`
	Categories  []string          `json:"categories,omitempty"`
	Schemes     []string          `json:"schemes,omitempty"`
	Authorities []AuthorityInfo   `json:"authorities,omitempty"`
	Paths       []PathPatternInfo `json:"paths,omitempty"`
	Data        []IntentDataInfo  `json:"data,omitempty"`
	AutoVerify  bool              `json:"auto_verify"`
}

// IsDeepLinkFilter reports whether the filter handles browsable VIEW intents
// with at least one scheme, i.e. whether it can open links at all.
func (f *IntentFilterInfo) IsDeepLinkFilter() bool {
	return f.hasAction(ActionView) &&
		f.hasCategory(CategoryBrowsable) &&
		f.hasCategory(CategoryDefault) &&
		len(f.Schemes) > 0
}

func (f *IntentFilterInfo) hasAction(action string) bool {
	for _, a := range f.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func (f *IntentFilterInfo) hasCategory(category string) bool {
	for _, c := range f.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// DeepLinkInfo is one scheme x path combination of a deep-link filter,
// carrying every host the filter declares.
type DeepLinkInfo struct {
	Activity   string   `json:"activity"`
	Scheme     string   `json:"scheme"`
	Hosts      []string `json:"hosts,omitempty"`
	Path       string   `json:"path,omitempty"`
	PathType   PathType `json:"path_type,omitempty"`
	AutoVerify bool     `json:"auto_verify"`
}

// Example renders a representative URL for display, using the first host.
func (d *DeepLinkInfo) Example() string {
	var sb strings.Builder
	sb.WriteString(d.Scheme)
	sb.WriteString("://")
	if len(d.Hosts) > 0 {
		sb.WriteString(d.Hosts[0])
	}
	if d.Path != "" {
		if !strings.HasPrefix(d.Path, "/") {
			sb.WriteString("/")
		}
		sb.WriteString(d.Path)
	}
	return sb.String()
}

type ActivityInfo struct {
	Name    string             `json:"name"`
	Filters []IntentFilterInfo `json:"filters,omitempty"`
}

// ManifestInfo is the structural model built from one package dump. It is
// immutable after the parse call that produced it.
type ManifestInfo struct {
	PackageName string         `json:"package_name"`
	VersionName string         `json:"version_name,omitempty"`
	VersionCode string         `json:"version_code,omitempty"`
	Activities  []ActivityInfo `json:"activities,omitempty"`
	DeepLinks   []DeepLinkInfo `json:"deep_links,omitempty"`
}

// VerifiableDomains returns the hosts of auto-verify deep-link filters with
// an http or https scheme, in declaration order without duplicates.
func (m *ManifestInfo) VerifiableDomains() []string {
	seen := make(map[string]bool)
	var domains []string
	for _, dl := range m.DeepLinks {
		if !dl.AutoVerify || (dl.Scheme != "https" && dl.Scheme != "http") {
			continue
		}
		for _, h := range dl.Hosts {
			if h == "" || seen[h] {
				continue
			}
			seen[h] = true
			domains = append(domains, h)
		}
	}
	return domains
}
