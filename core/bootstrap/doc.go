// Package bootstrap wires the server together.
//
// A Bootstrap reads the port= and base= startup parameters, binds a
// listener on 127.0.0.1, installs the handler chain (context dispatcher
// followed by the fallback handler) and attaches a deployment manager whose
// web-app provider watches <base>/webapps using <base>/webdefault.xml as the
// defaults descriptor.
//
// Lifecycle:
//
//	Created --StartServer--> Started --StopServer--> Stopped
//
// StopServer may be called from any state and any number of times.
package bootstrap
