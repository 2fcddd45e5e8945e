// Package models defines the core domain models for the shared-expense ledger.
//
// # Core Models
//
//   - Friend: a counterparty the local user splits expenses with
//   - Transaction: a monetary event, either a split or a settlement
//   - Participant: one party's share of a split ("you" or a friend id)
//   - Effect: the signed impact of a transaction on one friend's balance
//   - TransactionTemplate: a reusable blueprint for recurring splits
//   - Snapshot: the full application state (friends, transactions, templates)
//
// # Design Principles
//
//  1. **Single perspective**: every amount is signed from the local user's
//     point of view. A positive effect delta means the friend owes the user.
//  2. **Self-describing records**: transactions carry their type as data so
//     records written by older schema versions can be upgraded in place
//     (see the upgrade package). Legacy fields (half, delta, friendIds)
//     stay on the struct for that reason.
//  3. **Avoid circular references**: relationships use id strings, never
//     pointers.
//
// All timestamps are Unix milliseconds, matching the import/export file
// format. Optional timestamps use *int64 where "absent" is meaningful
// (settlement confirmation and cancellation).
package models
