package webapp

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DescriptorPath is where a package keeps its own descriptor.
const DescriptorPath = "WEB-INF/web.xml"

// Descriptor is the subset of a web.xml deployment descriptor the server
// understands. Unknown elements are ignored.
type Descriptor struct {
	XMLName          xml.Name      `xml:"web-app"`
	DisplayName      string        `xml:"display-name"`
	ContextParams    []Param       `xml:"context-param"`
	Servlets         []ServletDef  `xml:"servlet"`
	Mappings         []MappingDef  `xml:"servlet-mapping"`
	WelcomeFiles     []string      `xml:"welcome-file-list>welcome-file"`
	MimeMappings     []MimeMapping `xml:"mime-mapping"`
	RequestEncoding  string        `xml:"request-character-encoding"`
	ResponseEncoding string        `xml:"response-character-encoding"`
}

// Param is a name/value pair used by context-param and init-param.
type Param struct {
	Name  string `xml:"param-name"`
	Value string `xml:"param-value"`
}

// ServletDef declares a servlet instance of a registered class.
type ServletDef struct {
	Name       string  `xml:"servlet-name"`
	Class      string  `xml:"servlet-class"`
	InitParams []Param `xml:"init-param"`
}

// MappingDef binds URL patterns to a declared servlet.
type MappingDef struct {
	ServletName string   `xml:"servlet-name"`
	URLPatterns []string `xml:"url-pattern"`
}

// MimeMapping maps a file extension (without dot) to a content type.
type MimeMapping struct {
	Extension string `xml:"extension"`
	MimeType  string `xml:"mime-type"`
}

// ParseDescriptor decodes a descriptor and trims whitespace from every value.
// Structural validation happens after layering, see Validate.
func ParseDescriptor(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	if err := xml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	d.normalize()
	return &d, nil
}

// LoadDescriptorFile parses the descriptor stored at path.
func LoadDescriptorFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ParseDescriptor(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func (d *Descriptor) normalize() {
	d.DisplayName = strings.TrimSpace(d.DisplayName)
	d.RequestEncoding = strings.TrimSpace(d.RequestEncoding)
	d.ResponseEncoding = strings.TrimSpace(d.ResponseEncoding)
	trimParams(d.ContextParams)
	for i := range d.Servlets {
		s := &d.Servlets[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Class = strings.TrimSpace(s.Class)
		trimParams(s.InitParams)
	}
	for i := range d.Mappings {
		m := &d.Mappings[i]
		m.ServletName = strings.TrimSpace(m.ServletName)
		for j := range m.URLPatterns {
			m.URLPatterns[j] = strings.TrimSpace(m.URLPatterns[j])
		}
	}
	for i := range d.WelcomeFiles {
		d.WelcomeFiles[i] = strings.TrimSpace(d.WelcomeFiles[i])
	}
	for i := range d.MimeMappings {
		mm := &d.MimeMappings[i]
		mm.Extension = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(mm.Extension), "."))
		mm.MimeType = strings.TrimSpace(mm.MimeType)
	}
}

func trimParams(params []Param) {
	for i := range params {
		params[i].Name = strings.TrimSpace(params[i].Name)
		params[i].Value = strings.TrimSpace(params[i].Value)
	}
}

// Merge layers app on top of defaults and returns a new descriptor. Either
// argument may be nil. Servlets merge by name and mappings by URL pattern,
// with app winning. Welcome files are replaced when app declares any. The
// display name only comes from app, since it names one application.
func Merge(defaults, app *Descriptor) *Descriptor {
	out := &Descriptor{}
	if app != nil {
		out.DisplayName = app.DisplayName
	}
	for _, d := range []*Descriptor{defaults, app} {
		if d == nil {
			continue
		}
		if d.RequestEncoding != "" {
			out.RequestEncoding = d.RequestEncoding
		}
		if d.ResponseEncoding != "" {
			out.ResponseEncoding = d.ResponseEncoding
		}
		if len(d.WelcomeFiles) > 0 {
			out.WelcomeFiles = append([]string(nil), d.WelcomeFiles...)
		}
		out.ContextParams = mergeParams(out.ContextParams, d.ContextParams)
		out.MimeMappings = mergeMime(out.MimeMappings, d.MimeMappings)
		out.Servlets = mergeServlets(out.Servlets, d.Servlets)
		out.Mappings = mergeMappings(out.Mappings, d.Mappings)
	}
	return out
}

func mergeParams(base, over []Param) []Param {
	out := append([]Param(nil), base...)
next:
	for _, p := range over {
		for i := range out {
			if out[i].Name == p.Name {
				out[i] = p
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}

func mergeMime(base, over []MimeMapping) []MimeMapping {
	out := append([]MimeMapping(nil), base...)
next:
	for _, m := range over {
		for i := range out {
			if out[i].Extension == m.Extension {
				out[i] = m
				continue next
			}
		}
		out = append(out, m)
	}
	return out
}

func mergeServlets(base, over []ServletDef) []ServletDef {
	out := append([]ServletDef(nil), base...)
next:
	for _, s := range over {
		for i := range out {
			if out[i].Name == s.Name {
				out[i] = s
				continue next
			}
		}
		out = append(out, s)
	}
	return out
}

// mergeMappings flattens mappings to one pattern each so that a pattern
// claimed by over is removed from whichever base servlet held it.
func mergeMappings(base, over []MappingDef) []MappingDef {
	out := flatten(base)
	for _, m := range flatten(over) {
		pattern := m.URLPatterns[0]
		kept := out[:0]
		for _, existing := range out {
			if existing.URLPatterns[0] != pattern {
				kept = append(kept, existing)
			}
		}
		out = append(kept, m)
	}
	return out
}

func flatten(mappings []MappingDef) []MappingDef {
	var out []MappingDef
	for _, m := range mappings {
		for _, pattern := range m.URLPatterns {
			out = append(out, MappingDef{ServletName: m.ServletName, URLPatterns: []string{pattern}})
		}
	}
	return out
}

// Validate checks the layered descriptor: servlet names are unique and carry
// a class, every mapping refers to a declared servlet and uses a legal pattern.
func (d *Descriptor) Validate() error {
	var errs []error
	names := make(map[string]bool, len(d.Servlets))
	for _, s := range d.Servlets {
		switch {
		case s.Name == "":
			errs = append(errs, errors.New("servlet without servlet-name"))
		case names[s.Name]:
			errs = append(errs, fmt.Errorf("duplicate servlet %q", s.Name))
		case s.Class == "":
			errs = append(errs, fmt.Errorf("servlet %q has no servlet-class", s.Name))
		}
		names[s.Name] = true
	}
	for _, m := range d.Mappings {
		if !names[m.ServletName] {
			errs = append(errs, fmt.Errorf("mapping refers to undeclared servlet %q", m.ServletName))
		}
		for _, p := range m.URLPatterns {
			if !validPattern(p) {
				errs = append(errs, fmt.Errorf("servlet %q: invalid url-pattern %q", m.ServletName, p))
			}
		}
	}
	return errors.Join(errs...)
}

// InitParams flattens a param list into a map, last value winning.
func InitParams(params []Param) map[string]string {
	out := make(map[string]string, len(params))
	for _, p := range params {
		out[p.Name] = p.Value
	}
	return out
}
