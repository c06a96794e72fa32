// Package planhat models the remote CRM side of the connector: the service
// objects sent over the wire, the static field table used to decide which
// configured mappings are recognized, and the uniform API result envelope.
package planhat
