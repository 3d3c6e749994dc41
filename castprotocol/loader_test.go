package castprotocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vishen/go-chromecast/cast"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(requestID int, payload cast.Payload, sourceID, destinationID, namespace string) error {
	args := m.Called(requestID, payload, sourceID, destinationID, namespace)
	return args.Error(0)
}

func TestLaunchReceiverDefaultApp(t *testing.T) {
	assertions := require.New(t)

	conn := &mockSender{}
	conn.On("Send", mock.AnythingOfType("int"), mock.AnythingOfType("*castprotocol.LaunchPayload"), "sender-0", "receiver-0", namespaceReceiver).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*LaunchPayload)
			assertions.Equal("LAUNCH", p.Type)
			assertions.Equal(DefaultReceiverID, p.AppId)
			assertions.Equal(args.Int(0), p.RequestId)
		}).Return(nil)

	assertions.NoError(LaunchReceiver(conn, ""))
	conn.AssertExpectations(t)
}

func TestLaunchReceiverCustomAppError(t *testing.T) {
	assertions := require.New(t)

	sendErr := errors.New("broken pipe")
	conn := &mockSender{}
	conn.On("Send", mock.Anything, mock.MatchedBy(func(p *LaunchPayload) bool { return p.AppId == "ABCD1234" }),
		mock.Anything, mock.Anything, mock.Anything).Return(sendErr)

	err := LaunchReceiver(conn, "ABCD1234")
	assertions.ErrorIs(err, sendErr)
}

func TestLoadOnTransportConnectsThenLoads(t *testing.T) {
	assertions := require.New(t)

	media := MediaInfo{
		ContentId:   "http://example.com/v.mp4",
		ContentType: "video/mp4",
		StreamType:  "BUFFERED",
		Metadata: &MediaMeta{
			MetadataType: 1,
			Title:        "T",
			Images:       []MediaImage{{URL: "http://example.com/a.png"}},
		},
	}

	var order []string
	conn := &mockSender{}
	conn.On("Send", mock.Anything, mock.AnythingOfType("*castprotocol.ConnectPayload"), "sender-0", "transport-1", namespaceConnection).
		Run(func(mock.Arguments) { order = append(order, "CONNECT") }).Return(nil)
	conn.On("Send", mock.Anything, mock.AnythingOfType("*castprotocol.LoadPayload"), "sender-0", "transport-1", namespaceMedia).
		Run(func(args mock.Arguments) {
			order = append(order, "LOAD")
			p := args.Get(1).(*LoadPayload)
			assertions.Equal("LOAD", p.Type)
			assertions.Equal(media, p.Media)
			assertions.Equal(12.5, p.CurrentTime)
			assertions.True(p.Autoplay)

			b, err := json.Marshal(p)
			assertions.NoError(err)
			assertions.Contains(string(b), `"streamType":"BUFFERED"`)
			assertions.Contains(string(b), `"images":[{"url":"http://example.com/a.png"}]`)
			assertions.NotContains(string(b), `"duration"`)
		}).Return(nil)

	assertions.NoError(LoadOnTransport(conn, "transport-1", media, 12.5, true))
	assertions.Equal([]string{"CONNECT", "LOAD"}, order)
	conn.AssertExpectations(t)
}

func TestLoadOnTransportEmptyTransport(t *testing.T) {
	conn := &mockSender{}
	if err := LoadOnTransport(conn, "", MediaInfo{}, 0, true); err == nil {
		t.Fatalf("LoadOnTransport() err = nil, want error")
	}
	conn.AssertNotCalled(t, "Send")
}

func TestNextRequestIDIncreases(t *testing.T) {
	a := nextRequestID()
	b := nextRequestID()
	if b <= a {
		t.Fatalf("nextRequestID() = %d after %d, want increasing", b, a)
	}
}
