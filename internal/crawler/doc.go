// Package crawler holds the canonical domain shared by the spider: platforms,
// accounts, the job ledger record, the Performer schema and its merge rule,
// plus the interfaces adapters and stores implement.
package crawler
