// Package gdbridge exposes the module version.
package gdbridge

// Version is the gdbridge release version.
const Version = "0.3.0"
