// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing conversations of core turns. It is not
// intended for production usage.
package testutil
