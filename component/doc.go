// Package component defines the lifecycle contract shared by everything an
// application starts and stops: the database interface, the HTTP server and
// the test helpers built on them.
//
// Components are started in registration order and stopped in reverse order
// by a Registry.
package component
