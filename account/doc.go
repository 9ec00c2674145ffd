/*
Package account implements the account router: the single entry point a
trusted dispatcher talks to.

The router owns the validator registry and the account's sequence counter.
It routes every authorization decision to the validator module bound to the
request's routing key, falling back to a plain signature check, and it
forwards authorized execution to external targets through an Invoker.

Module install and uninstall are only reachable with the capability context
produced by a successful Authorize, so policy changes are themselves policy
gated.
*/
package account
