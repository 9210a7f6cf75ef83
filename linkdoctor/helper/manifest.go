package helper

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
)

var (
	reVersionName = regexp.MustCompile(`versionName=(\S+)`)
	reVersionCode = regexp.MustCompile(`versionCode=(\d+)`)

	// A filter header inside the activity resolver table:
	//   cdb4322 com.example.app/.ui.LinkActivity filter 8dc5011
	reFilterHeader = regexp.MustCompile(`^([0-9a-f]+) (\S+)/(\S+) filter ([0-9a-f]+)`)

	// Authority: "example.com": -1
	reAuthority = regexp.MustCompile(`^Authority: "([^"]*)": (-?\d+)`)

	// Path: "PatternMatcher{PREFIX: /products/}"
	rePathMatcher = regexp.MustCompile(`^Path: "PatternMatcher\{([A-Z ]+): (.*)\}"`)

	reQuotedValue = regexp.MustCompile(`"([^"]*)"`)
)

const activityResolverHeader = "Activity Resolver Table:"

// ParseManifest builds the structural activity/intent-filter model of a
// package from one `dumpsys package <pkg>` dump. Like the verification
// parsers it is total: anything it cannot recognize is skipped and the
// result holds whatever was extractable.
func ParseManifest(packageName, dumpText string) *definitions.ManifestInfo {
	info := &definitions.ManifestInfo{PackageName: packageName}

	if m := reVersionName.FindStringSubmatch(dumpText); m != nil {
		info.VersionName = m[1]
	}
	if m := reVersionCode.FindStringSubmatch(dumpText); m != nil {
		info.VersionCode = m[1]
	}

	filters := parseResolverTable(packageName, dumpText)
	info.Activities = groupByActivity(filters)
	info.DeepLinks = deriveDeepLinks(filters)

	return info
}

// parseResolverTable walks the activity resolver table section. The section
// starts at its header and ends at the next column-zero section header.
// The table repeats a filter's full body once per scheme key it is indexed
// under, so blocks are de-duplicated by activity and filter id.
func parseResolverTable(packageName, dumpText string) []definitions.IntentFilterInfo {
	var (
		filters []definitions.IntentFilterInfo
		current *definitions.IntentFilterInfo
		seen    = make(map[string]bool)
		inTable bool
		skip    bool
	)

	closeCurrent := func() {
		if current == nil || skip {
			current = nil
			skip = false
			return
		}
		current.Data = crossProduct(current.Schemes, current.Paths)
		filters = append(filters, *current)
		current = nil
	}

	sc := bufio.NewScanner(strings.NewReader(dumpText))
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)

		if !inTable {
			if line == activityResolverHeader {
				inTable = true
			}
			continue
		}
		// A non-indented, non-empty line is the next top-level section.
		if line != "" && !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t") {
			break
		}

		if m := reFilterHeader.FindStringSubmatch(line); m != nil {
			closeCurrent()
			pkg, activity, filterID := m[2], m[3], m[4]
			if pkg != packageName {
				skip = true
				current = &definitions.IntentFilterInfo{}
				continue
			}
			if strings.HasPrefix(activity, ".") {
				activity = pkg + activity
			}
			key := activity + "#" + filterID
			if seen[key] {
				skip = true
				current = &definitions.IntentFilterInfo{}
				continue
			}
			seen[key] = true
			current = &definitions.IntentFilterInfo{Activity: activity}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Action:"):
			if v, ok := quotedValue(line); ok {
				current.Actions = append(current.Actions, v)
			}
		case strings.HasPrefix(line, "Category:"):
			if v, ok := quotedValue(line); ok {
				current.Categories = append(current.Categories, v)
			}
		case strings.HasPrefix(line, "Scheme:"):
			if v, ok := quotedValue(line); ok {
				current.Schemes = append(current.Schemes, v)
			}
		case strings.HasPrefix(line, "Authority:"):
			if m := reAuthority.FindStringSubmatch(line); m != nil {
				port, _ := strconv.Atoi(m[2])
				current.Authorities = append(current.Authorities, definitions.AuthorityInfo{Host: m[1], Port: port})
			}
		case strings.HasPrefix(line, "Path:"):
			if m := rePathMatcher.FindStringSubmatch(line); m != nil {
				current.Paths = append(current.Paths, definitions.PathPatternInfo{
					Type:    mapPatternType(m[1]),
					Pattern: m[2],
				})
			}
		case strings.HasPrefix(line, "PathPrefix:"):
			if v, ok := quotedValue(line); ok {
				current.Paths = append(current.Paths, definitions.PathPatternInfo{Type: definitions.PathPrefix, Pattern: v})
			}
		case strings.HasPrefix(line, "PathPattern:"):
			if v, ok := quotedValue(line); ok {
				current.Paths = append(current.Paths, definitions.PathPatternInfo{Type: definitions.PathGlob, Pattern: v})
			}
		case strings.HasPrefix(line, "AutoVerify="):
			current.AutoVerify = strings.TrimPrefix(line, "AutoVerify=") == "true"
		}
	}
	closeCurrent()

	return filters
}

func quotedValue(line string) (string, bool) {
	m := reQuotedValue.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func mapPatternType(token string) definitions.PathType {
	switch strings.TrimSpace(token) {
	case "LITERAL":
		return definitions.PathLiteral
	case "PREFIX":
		return definitions.PathPrefix
	default:
		// GLOB, ADVANCED and SUFFIX all behave as patterns for our purposes.
		return definitions.PathGlob
	}
}

// crossProduct expands schemes x paths, degrading to scheme-only or
// path-only entries when either side is empty.
func crossProduct(schemes []string, paths []definitions.PathPatternInfo) []definitions.IntentDataInfo {
	switch {
	case len(schemes) == 0 && len(paths) == 0:
		return nil
	case len(paths) == 0:
		data := make([]definitions.IntentDataInfo, 0, len(schemes))
		for _, s := range schemes {
			data = append(data, definitions.IntentDataInfo{Scheme: s})
		}
		return data
	case len(schemes) == 0:
		data := make([]definitions.IntentDataInfo, 0, len(paths))
		for _, p := range paths {
			data = append(data, definitions.IntentDataInfo{Path: p.Pattern, PathType: p.Type})
		}
		return data
	default:
		data := make([]definitions.IntentDataInfo, 0, len(schemes)*len(paths))
		for _, s := range schemes {
			for _, p := range paths {
				data = append(data, definitions.IntentDataInfo{Scheme: s, Path: p.Pattern, PathType: p.Type})
			}
		}
		return data
	}
}

func groupByActivity(filters []definitions.IntentFilterInfo) []definitions.ActivityInfo {
	index := make(map[string]int)
	var activities []definitions.ActivityInfo
	for _, f := range filters {
		i, ok := index[f.Activity]
		if !ok {
			i = len(activities)
			index[f.Activity] = i
			activities = append(activities, definitions.ActivityInfo{Name: f.Activity})
		}
		activities[i].Filters = append(activities[i].Filters, f)
	}
	return activities
}

// deriveDeepLinks keeps VIEW+BROWSABLE+DEFAULT filters with a scheme and
// expands one entry per scheme x path combination.
func deriveDeepLinks(filters []definitions.IntentFilterInfo) []definitions.DeepLinkInfo {
	var deepLinks []definitions.DeepLinkInfo
	for _, f := range filters {
		if !f.IsDeepLinkFilter() {
			continue
		}
		hosts := make([]string, 0, len(f.Authorities))
		for _, a := range f.Authorities {
			hosts = append(hosts, a.Host)
		}
		for _, d := range f.Data {
			if d.Scheme == "" {
				continue
			}
			deepLinks = append(deepLinks, definitions.DeepLinkInfo{
				Activity:   f.Activity,
				Scheme:     d.Scheme,
				Hosts:      hosts,
				Path:       d.Path,
				PathType:   d.PathType,
				AutoVerify: f.AutoVerify,
			})
		}
	}
	return deepLinks
}
