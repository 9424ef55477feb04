// Package packages synchronises package archives from object storage into
// the monitored directory.
//
// Every *.war object below the configured prefix is downloaded when the
// local copy is missing or differs in size or modification time. Downloads
// land in a hidden temporary file first and are renamed into place, so the
// deployment watcher never sees a partial archive. With prune, local
// archives that are no longer in the bucket are removed, which undeploys
// them.
package packages
