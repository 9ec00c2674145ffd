/*
Package errors implements custom error interfaces for the engine.

The idea is to reuse as many errors from this package as possible and
define custom package errors when absolutely necessary. Errors are
registered with a unique numeric code, and that code is the only error
information that ever crosses the authorization boundary: zero means
acceptance, any other code a rejection class.

Errors wrap a root cause and carry a stack trace attached at the lowest
frame that created them.
*/
package errors
