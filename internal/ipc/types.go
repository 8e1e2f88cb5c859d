package ipc

import "singleapp/internal/singleton"

// serviceName is the RPC receiver name every Connector socket registers.
const serviceName = "Connector"

// BringToFrontRequest asks the instance to show its UI.
type BringToFrontRequest struct{}

// BringToFrontResponse acknowledges a bring-to-front request.
type BringToFrontResponse struct {
	State string `json:"state"`
}

// AttachRequest registers a client id with the instance.
type AttachRequest struct {
	ClientID string `json:"client_id"`
}

// AttachResponse reports the client count after attaching.
type AttachResponse struct {
	Clients int `json:"clients"`
}

// DetachRequest unregisters a client id.
type DetachRequest struct {
	ClientID string `json:"client_id"`
}

// DetachResponse reports the client count after detaching.
type DetachResponse struct {
	Clients int `json:"clients"`
}

// ClientCountRequest fetches the number of attached clients.
type ClientCountRequest struct{}

// ClientCountResponse carries the attached client count.
type ClientCountResponse struct {
	Count int `json:"count"`
}

// StatusRequest fetches a snapshot of the instance.
type StatusRequest struct{}

// StatusResponse mirrors singleton.Snapshot on the wire.
type StatusResponse = singleton.Snapshot
