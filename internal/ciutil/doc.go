// Package ciutil detects CI environments and resolves externally provided
// test infrastructure, such as a database started by the CI service
// configuration, so integration tests can reuse it instead of starting a
// container.
package ciutil
