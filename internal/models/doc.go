// Package models defines the core domain models for splitledger.
//
// # Models
//
//   - Group: a named collection of users sharing expenses
//   - Membership: the (group, user, role) relation; unique per (group, user)
//   - User: a directory entry for an identity-provider subject
//   - Expense: an immutable snapshot of a reconciled split
//
// # Design Principles
//
//  1. **Integer money**: every amount is a money.Money (minor units), never float64
//  2. **IDs, not pointers**: relationships are expressed with ID strings
//  3. **Snapshots**: an Expense owns its shares; they are stored, not recomputed
//  4. **Error kinds**: operations return one of the sentinel errors in errors.go,
//     wrapped with context, so callers can branch with errors.Is
package models
