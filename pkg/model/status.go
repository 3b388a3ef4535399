package model

// SourceStatus is the connection state of a data source client.
type SourceStatus string

const (
	StatusDisconnected SourceStatus = "disconnected"
	StatusConnecting   SourceStatus = "connecting"
	StatusReconnecting SourceStatus = "reconnecting"
	StatusConnected    SourceStatus = "connected"
)

// SourceInfo describes a registered data source for status display.
type SourceInfo struct {
	ID     string       `json:"id"`
	Type   EntityType   `json:"type"`
	Label  string       `json:"label"`
	Status SourceStatus `json:"status"`
}
