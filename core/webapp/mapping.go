package webapp

import (
	"sort"
	"strings"
)

// Match is the result of resolving a path within a context.
type Match struct {
	Servlet     string
	Pattern     string
	ServletPath string
	PathInfo    string
}

type prefixMapping struct {
	prefix  string // pattern without the trailing "/*"
	pattern string
	servlet string
}

// Mapper resolves request paths to servlets using the precedence exact,
// longest path prefix, extension, default.
type Mapper struct {
	root       string
	exact      map[string]string
	prefixes   []prefixMapping
	extensions map[string]string
	def        string
}

// NewMapper builds a mapper from flattened descriptor mappings. Later
// mappings win for an identical pattern.
func NewMapper(mappings []MappingDef) *Mapper {
	m := &Mapper{
		exact:      make(map[string]string),
		extensions: make(map[string]string),
	}
	prefixes := make(map[string]prefixMapping)

	for _, md := range mappings {
		for _, pattern := range md.URLPatterns {
			switch {
			case pattern == "":
				m.root = md.ServletName
			case pattern == "/":
				m.def = md.ServletName
			case strings.HasPrefix(pattern, "*."):
				m.extensions[pattern[2:]] = md.ServletName
			case strings.HasSuffix(pattern, "/*"):
				prefix := strings.TrimSuffix(pattern, "/*")
				prefixes[prefix] = prefixMapping{prefix: prefix, pattern: pattern, servlet: md.ServletName}
			default:
				m.exact[pattern] = md.ServletName
			}
		}
	}

	for _, p := range prefixes {
		m.prefixes = append(m.prefixes, p)
	}
	sort.Slice(m.prefixes, func(i, j int) bool {
		return len(m.prefixes[i].prefix) > len(m.prefixes[j].prefix)
	})
	return m
}

// Match resolves path, which is relative to the context and starts with "/".
func (m *Mapper) Match(path string) (Match, bool) {
	if path == "" {
		path = "/"
	}

	if path == "/" && m.root != "" {
		return Match{Servlet: m.root, Pattern: "", ServletPath: "", PathInfo: "/"}, true
	}

	if servlet, ok := m.exact[path]; ok {
		return Match{Servlet: servlet, Pattern: path, ServletPath: path}, true
	}

	for _, p := range m.prefixes {
		if path == p.prefix || strings.HasPrefix(path, p.prefix+"/") {
			return Match{
				Servlet:     p.servlet,
				Pattern:     p.pattern,
				ServletPath: p.prefix,
				PathInfo:    path[len(p.prefix):],
			}, true
		}
	}

	last := path[strings.LastIndex(path, "/")+1:]
	if dot := strings.LastIndex(last, "."); dot >= 0 {
		if servlet, ok := m.extensions[last[dot+1:]]; ok {
			return Match{Servlet: servlet, Pattern: "*." + last[dot+1:], ServletPath: path}, true
		}
	}

	if m.def != "" {
		return Match{Servlet: m.def, Pattern: "/", ServletPath: path}, true
	}
	return Match{}, false
}

func validPattern(p string) bool {
	switch {
	case p == "", p == "/", p == "/*":
		return true
	case strings.HasPrefix(p, "*."):
		ext := p[2:]
		return ext != "" && !strings.ContainsAny(ext, "/*")
	case strings.HasPrefix(p, "/"):
		body := strings.TrimSuffix(p, "/*")
		return !strings.Contains(body, "*")
	default:
		return false
	}
}
