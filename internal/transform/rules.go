package transform

import (
	"regexp"
	"strings"
)

// Paths with a registered body rule.
const (
	InboxPath    = "/api/bd/v2_1/user/getInboxFromDC"
	MessagesPath = "/api/bd/v2_1/message/getMessageByTypes"
)

// Rule rewrites a parsed response body.
type Rule func(Value) Value

// Table maps an exact request path, without query string, to its rule.
type Table map[string]Rule

// DefaultTable returns the rules served by the proxy.
func DefaultTable() Table {
	return Table{
		InboxPath:    func(v Value) Value { return MapStrings(v, StripBackgroundImage) },
		MessagesPath: func(v Value) Value { return MapStrings(v, BackgroundToImgSrc) },
	}
}

// Lookup returns the rule for path. A query string, if present, is ignored.
func (t Table) Lookup(path string) (Rule, bool) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	r, ok := t[path]
	return r, ok
}

// MapStrings returns a copy of v with fn applied to every string reachable
// through object members and array items. Keys and non-string scalars are
// left alone.
func MapStrings(v Value, fn func(string) string) Value {
	switch v.Kind {
	case String:
		return StringValue(fn(v.Str))
	case Array:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = MapStrings(item, fn)
		}
		return Value{Kind: Array, Items: items}
	case Object:
		members := make([]Member, len(v.Members))
		for i, m := range v.Members {
			members[i] = Member{Key: m.Key, Value: MapStrings(m.Value, fn)}
		}
		return Value{Kind: Object, Members: members}
	default:
		return v
	}
}

var (
	backgroundDeclRe = regexp.MustCompile(`(?i)background-image\s*:\s*url\([^)]*\)\s*;?\s*`)
	backgroundURLRe  = regexp.MustCompile(`(?i)background-image\s*:\s*url\(\s*['"]?([^'")]*)['"]?\s*\)`)
	imgTagRe         = regexp.MustCompile(`(?i)<img(\s[^>]*)?>`)
	srcAttrRe        = regexp.MustCompile(`(?i)(^|\s)src\s*=`)
	danglingSizeRe   = regexp.MustCompile(`(?i)background-size:100%;\s*\);?`)
	styleAttrRe      = regexp.MustCompile(`(?i)\sstyle="([^"]*)"`)
	repeatedSemiRe   = regexp.MustCompile(`;(\s*;)+`)
	spaceRunRe       = regexp.MustCompile(`\s+`)
)

// StripBackgroundImage removes every background-image:url(...) declaration
// together with its trailing semicolon and whitespace.
func StripBackgroundImage(s string) string {
	if !strings.Contains(strings.ToLower(s), "background-image") {
		return s
	}
	return backgroundDeclRe.ReplaceAllString(s, "")
}

// BackgroundToImgSrc lifts the first background-image URL into the src of
// the first <img> tag that has none, then removes the background-image
// declarations and tidies the style attributes left behind. Strings without
// a background-image URL are returned unchanged.
func BackgroundToImgSrc(s string) string {
	m := backgroundURLRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	url := strings.TrimSpace(m[1])

	s = setFirstImgSrc(s, url)
	s = backgroundDeclRe.ReplaceAllString(s, "")
	s = danglingSizeRe.ReplaceAllString(s, "background-size:100%;")
	return styleAttrRe.ReplaceAllStringFunc(s, normalizeStyleAttr)
}

func setFirstImgSrc(s, url string) string {
	for _, loc := range imgTagRe.FindAllStringSubmatchIndex(s, -1) {
		attrs := ""
		if loc[2] >= 0 {
			attrs = s[loc[2]:loc[3]]
		}
		if srcAttrRe.MatchString(attrs) {
			continue
		}
		tag := `<img src="` + url + `"` + attrs + ">"
		return s[:loc[0]] + tag + s[loc[1]:]
	}
	return s
}

func normalizeStyleAttr(attr string) string {
	m := styleAttrRe.FindStringSubmatch(attr)
	style := repeatedSemiRe.ReplaceAllString(m[1], ";")
	style = spaceRunRe.ReplaceAllString(style, " ")
	style = strings.TrimSpace(style)
	style = strings.TrimLeft(style, "; ")
	return attr[:1] + `style="` + style + `"`
}
