// Package webtest provides the diagnostic echo servlet.
//
// The servlet class "webtest" answers GET requests with the value of the
// hello query parameter wrapped in an h1 element. It exists to check that
// non-ASCII parameters survive the round trip as UTF-8.
//
// Map it from a package descriptor:
//
//	<servlet>
//	  <servlet-name>webtest</servlet-name>
//	  <servlet-class>webtest</servlet-class>
//	</servlet>
//	<servlet-mapping>
//	  <servlet-name>webtest</servlet-name>
//	  <url-pattern>/diagnostic</url-pattern>
//	</servlet-mapping>
package webtest
