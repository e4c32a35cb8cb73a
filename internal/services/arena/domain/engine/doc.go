// Package engine executes arena commands against storage.
//
// Every command runs in one storage transaction: the decider sees the
// current projections, requested ledger transfers are validated against
// live balances, and the resulting events and projections commit together
// or not at all.
package engine
