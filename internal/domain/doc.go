// Package domain defines the data models and contracts shared by the
// integrity engine, the module catalog and the transports that host them.
// It contains plain types (keys, seeds, modules) and interfaces only.
package domain
