package api

import "time"

// MsgTokenExpired is the 401 error body distinguishing an expired access
// token from an invalid one. Clients match on it to trigger their one
// transparent refresh before failing a sync cycle.
const MsgTokenExpired = "token expired"

// SyncResponse is returned by the sync endpoint. The note payload exchange
// itself is owned by the storage layer; this contract only reports that the
// cycle was accepted and when the server processed it.
type SyncResponse struct {
	ServerTime time.Time `json:"server_time"`
}
