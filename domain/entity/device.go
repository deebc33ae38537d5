// Package entity contains the core business objects of the library.
package entity

// DeviceIdentity is the install-scoped identifier the backend tracks
// entitlements against. The server may rewrite Key during registration to
// de-duplicate installs; ServerSynced flips true only after a successful
// registration round trip. The identity persists until explicit logout or
// user deletion.
type DeviceIdentity struct {
	Key               string `json:"key"`                         // Install identifier, initially a client-generated UUID.
	ServerSynced      bool   `json:"sync"`                        // True once the server has acknowledged this identity.
	FirstRegisteredMs int64  `json:"firstRegisteredMs,omitempty"` // Server-reported first registration, unix milliseconds.
}
