// Package provider selects and builds the active auth provider by name.
package provider
