// Package types defines the record model, filter criteria, patches, the
// Remote interface to the backend API, configuration, and the standard
// errors shared by every marketdesk component.
package types
