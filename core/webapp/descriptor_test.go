package webapp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultsXML = `<?xml version="1.0" encoding="UTF-8"?>
<web-app xmlns="http://xmlns.jcp.org/xml/ns/javaee" version="3.1">
  <servlet>
    <servlet-name>default</servlet-name>
    <servlet-class>static</servlet-class>
    <init-param>
      <param-name>dirAllowed</param-name>
      <param-value>false</param-value>
    </init-param>
  </servlet>
  <servlet-mapping>
    <servlet-name>default</servlet-name>
    <url-pattern>/</url-pattern>
  </servlet-mapping>
  <welcome-file-list>
    <welcome-file>index.html</welcome-file>
    <welcome-file>index.htm</welcome-file>
  </welcome-file-list>
  <mime-mapping>
    <extension>md</extension>
    <mime-type>text/markdown</mime-type>
  </mime-mapping>
  <response-character-encoding>UTF-8</response-character-encoding>
</web-app>`

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor(strings.NewReader(defaultsXML))
	require.NoError(t, err)

	require.Len(t, d.Servlets, 1)
	assert.Equal(t, "default", d.Servlets[0].Name)
	assert.Equal(t, StaticClass, d.Servlets[0].Class)
	assert.Equal(t, map[string]string{"dirAllowed": "false"}, InitParams(d.Servlets[0].InitParams))
	assert.Equal(t, []string{"index.html", "index.htm"}, d.WelcomeFiles)
	assert.Equal(t, "UTF-8", d.ResponseEncoding)
	assert.NoError(t, d.Validate())
}

func TestParseDescriptor_Invalid(t *testing.T) {
	_, err := ParseDescriptor(strings.NewReader("<web-app><servlet>"))
	assert.Error(t, err)

	_, err = ParseDescriptor(strings.NewReader("<beans/>"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	defaults, err := ParseDescriptor(strings.NewReader(defaultsXML))
	require.NoError(t, err)

	app, err := ParseDescriptor(strings.NewReader(`<web-app>
  <display-name>Shop</display-name>
  <servlet>
    <servlet-name>default</servlet-name>
    <servlet-class>static</servlet-class>
    <init-param><param-name>dirAllowed</param-name><param-value>true</param-value></init-param>
  </servlet>
  <servlet>
    <servlet-name>echo</servlet-name>
    <servlet-class>webtest</servlet-class>
  </servlet>
  <servlet-mapping>
    <servlet-name>echo</servlet-name>
    <url-pattern>/diagnostic</url-pattern>
    <url-pattern>/</url-pattern>
  </servlet-mapping>
  <welcome-file-list><welcome-file>home.html</welcome-file></welcome-file-list>
  <mime-mapping><extension>.MD</extension><mime-type>text/x-markdown</mime-type></mime-mapping>
</web-app>`))
	require.NoError(t, err)

	merged := Merge(defaults, app)
	require.NoError(t, merged.Validate())

	assert.Equal(t, "Shop", merged.DisplayName)
	assert.Equal(t, "UTF-8", merged.ResponseEncoding)
	assert.Equal(t, []string{"home.html"}, merged.WelcomeFiles)
	assert.Equal(t, []MimeMapping{{Extension: "md", MimeType: "text/x-markdown"}}, merged.MimeMappings)

	require.Len(t, merged.Servlets, 2)
	assert.Equal(t, "true", InitParams(merged.Servlets[0].InitParams)["dirAllowed"])

	// "/" moved from the default servlet to echo
	assert.Equal(t, []MappingDef{
		{ServletName: "echo", URLPatterns: []string{"/diagnostic"}},
		{ServletName: "echo", URLPatterns: []string{"/"}},
	}, merged.Mappings)
}

func TestMerge_DisplayNameNotInherited(t *testing.T) {
	defaults, err := ParseDescriptor(strings.NewReader(`<web-app><display-name>defaults</display-name></web-app>`))
	require.NoError(t, err)

	assert.Empty(t, Merge(defaults, nil).DisplayName)
	assert.Empty(t, Merge(defaults, &Descriptor{}).DisplayName)
	assert.Equal(t, "Shop", Merge(defaults, &Descriptor{DisplayName: "Shop"}).DisplayName)
}

func TestValidate(t *testing.T) {
	d := &Descriptor{
		Servlets: []ServletDef{{Name: "a", Class: "static"}, {Name: "a", Class: "static"}, {Name: "b"}},
		Mappings: []MappingDef{{ServletName: "missing", URLPatterns: []string{"bad"}}},
	}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate servlet "a"`)
	assert.Contains(t, err.Error(), `servlet "b" has no servlet-class`)
	assert.Contains(t, err.Error(), `undeclared servlet "missing"`)
	assert.Contains(t, err.Error(), `invalid url-pattern "bad"`)
}
