/*
Package multisig implements an m-of-n approval module for accounts.

An account that installs this module gets a contract: an ordered list of
owner addresses and a confirmation threshold. Owners propose transactions,
confirm or revoke their confirmation, and execute once enough
confirmations were gathered. The module also serves as the account's
decision arm: a request routed to it is accepted iff the referenced
transaction is pending, its stored content hash matches the presented
instruction and enough current owners confirmed it.

State is multi-tenant. Everything is keyed by the account address, so any
number of accounts can share one installation of the module without
seeing each other's contracts.
*/
package multisig
