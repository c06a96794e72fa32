// Package integration contains the outbound synchronization bounded context.
// It manages how platform change notifications are turned into remote CRM writes.
//
// Key concepts:
//   - ConnectorSettings: the per-connector configuration driving filtering and mapping
//   - Envelope: per-record processing state (message, operation, reason, mapped payload)
//   - AccountDictionary: batch-local resolution of platform accounts to remote companies
//   - ServiceClient / PlatformClient: ports to the remote service and to the platform
//   - SyncRecord: journal entry for every routed outcome
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
