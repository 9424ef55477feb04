// Package webapp turns a deployable package into a routed web application.
//
// A package is either an unpacked directory or a .war archive found in the
// monitored directory. Loading one layers its WEB-INF/web.xml over the shared
// defaults descriptor, instantiates the declared servlets from a Registry and
// builds the servlet Mapper.
//
// # Descriptors
//
// The understood web.xml subset covers display-name, context-param, servlet
// (with init-param), servlet-mapping, welcome-file-list, mime-mapping and the
// request/response character encodings. Merge layers descriptors: servlets by
// name, mappings by URL pattern, welcome files replaced wholesale.
//
// # Mapping
//
// URL patterns follow servlet rules. Precedence is exact match, longest
// path prefix ("/api/*"), extension ("*.json"), then the default ("/").
// The empty pattern matches the context root only.
//
// # Servlets
//
// The built-in "static" class serves package files and never exposes
// WEB-INF or META-INF. Other classes are contributed by features through
// Registry.Register.
package webapp
