/*
obold is a UTXO ledger batch resolver.

It maintains a pool of unspent transaction outputs in a local database,
validates batches of candidate transactions against that pool, resolves
conflicts between candidates that contend for the same outputs, and
commits the accepted subset atomically.
*/
package main
