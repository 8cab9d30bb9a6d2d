// Package catalog holds the inspection modules delivered to clients.
//
// A Catalog is built once (in code or from a JSON manifest) and is read-only
// afterwards, so a single instance is shared by every connection. Manifests
// may reference LZ4 archives of the client payload and may themselves be
// sealed with a passphrase.
package catalog
