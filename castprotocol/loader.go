package castprotocol

import (
	"fmt"
	"sync/atomic"

	"github.com/vishen/go-chromecast/cast"
)

const (
	// DefaultReceiverID is the Google Default Media Receiver application.
	DefaultReceiverID = "CC1AD845"

	defaultSender        = "sender-0"
	defaultReceiver      = "receiver-0"
	namespaceConnection  = "urn:x-cast:com.google.cast.tp.connection"
	namespaceReceiver    = "urn:x-cast:com.google.cast.receiver"
	namespaceMedia       = "urn:x-cast:com.google.cast.media"
	requestIDCounterBase = 1000
)

// Request ID counter for Chromecast messages. Starts above the ids the
// go-chromecast application uses for its own traffic.
var requestIDCounter int32 = requestIDCounterBase

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

// messageSender is the part of cast.Conn the loader needs.
type messageSender interface {
	Send(requestID int, payload cast.Payload, sourceID, destinationID, namespace string) error
}

// LaunchPayload asks the receiver device to start an application.
type LaunchPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId"`
	AppId     string `json:"appId"`
}

// SetRequestId implements cast.Payload interface
func (p *LaunchPayload) SetRequestId(id int) {
	p.RequestId = id
}

// ConnectPayload opens a virtual connection to a running receiver
// application.
type ConnectPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId,omitempty"`
}

// SetRequestId implements cast.Payload interface
func (p *ConnectPayload) SetRequestId(id int) {
	p.RequestId = id
}

// LoadPayload is a LOAD media command carrying full metadata and the
// requested stream type. go-chromecast's own load command always sends
// BUFFERED and no metadata.
type LoadPayload struct {
	Type        string    `json:"type"`
	RequestId   int       `json:"requestId"`
	Media       MediaInfo `json:"media"`
	CurrentTime float64   `json:"currentTime"`
	Autoplay    bool      `json:"autoplay"`
}

// SetRequestId implements cast.Payload interface
func (p *LoadPayload) SetRequestId(id int) {
	p.RequestId = id
}

var (
	_ cast.Payload = (*LaunchPayload)(nil)
	_ cast.Payload = (*ConnectPayload)(nil)
	_ cast.Payload = (*LoadPayload)(nil)
)

// LaunchReceiver asks the device to launch the receiver application with
// the given id. An empty id launches the default media receiver.
func LaunchReceiver(conn messageSender, appID string) error {
	if appID == "" {
		appID = DefaultReceiverID
	}

	payload := &LaunchPayload{
		Type:  "LAUNCH",
		AppId: appID,
	}

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, defaultSender, defaultReceiver, namespaceReceiver); err != nil {
		return fmt.Errorf("send launch: %w", err)
	}

	return nil
}

// LoadOnTransport opens a virtual connection to the receiver application
// identified by transportId and sends it a LOAD command.
// startTime is the position in seconds to start playback from.
func LoadOnTransport(conn messageSender, transportId string, media MediaInfo, startTime float64, autoplay bool) error {
	if transportId == "" {
		return fmt.Errorf("load: empty transport id")
	}

	connect := &ConnectPayload{Type: "CONNECT"}
	connectID := nextRequestID()
	connect.SetRequestId(connectID)
	if err := conn.Send(connectID, connect, defaultSender, transportId, namespaceConnection); err != nil {
		return fmt.Errorf("connect to transport: %w", err)
	}

	payload := &LoadPayload{
		Type:        "LOAD",
		Media:       media,
		CurrentTime: startTime,
		Autoplay:    autoplay,
	}

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, defaultSender, transportId, namespaceMedia); err != nil {
		return fmt.Errorf("send load: %w", err)
	}

	return nil
}
