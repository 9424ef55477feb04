// Package deploy discovers web application packages and keeps the context
// dispatcher in sync with the monitored directory.
//
// # Watcher Configuration
//
// WatcherConfig is derived from the base directory:
//
//	<base>/webapps          monitored directory
//	<base>/webdefault.xml   defaults descriptor applied to every package
//
// Packages are registered in place. Archives are only unpacked when
// ExtractPackages is set.
//
// # Scanning
//
// The Scanner rescans on a fixed interval and shortly after fsnotify reports
// activity in the directory. Entries that appear or change after the initial
// scan are deployed once they are stable across two scans, so partially
// copied archives are left alone.
//
// # Failures
//
// A package that fails to load is logged as a DeploymentError and skipped.
// It never affects the server or other contexts.
package deploy
