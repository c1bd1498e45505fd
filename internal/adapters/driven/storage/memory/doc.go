// Package memory provides in-process implementations of the driven
// storage ports. They back the service tests and stand in when no
// database is wanted.
package memory
