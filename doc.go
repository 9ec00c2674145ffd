/*
Package stronghold defines the common vocabulary of the engine: identity
conditions and addresses, the request envelope a trusted dispatcher hands
to an account, the validator module interface that authorization decisions
are routed to, and the key-value store interfaces every component persists
through.

The account router lives in the account package, the multi owner approval
engine in x/multisig. Everything here is glue those packages agree on.
*/
package stronghold
