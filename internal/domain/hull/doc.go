// Package hull models the customer-data platform side of the connector.
//
// Key concepts:
//   - Profile: a user or account as delivered in a notification, kept as a
//     nested attribute map so configured mapping paths resolve at runtime
//   - UserUpdateMessage / AccountUpdateMessage: one change notification each
//   - UserClaims / AccountClaims: the identity used to scope write-backs
//   - Attributes: the trait set written back after a successful sync
package hull
