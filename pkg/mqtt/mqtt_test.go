package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/goccy/go-json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient records calls; a publish on a subscribed topic loops back
// through onPublish.
type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	subscribed []string
	published  []published
	onPublish  func(topic string, payload []byte)
}

func (f *fakeClient) IsConnected() bool      { return f.connected }
func (f *fakeClient) IsConnectionOpen() bool { return f.connected }
func (f *fakeClient) Connect() mqtt.Token    { return doneToken{} }
func (f *fakeClient) Disconnect(uint)        { f.connected = false }
func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	data := payload.([]byte)
	f.published = append(f.published, published{topic, data})
	hook := f.onPublish
	f.mu.Unlock()
	if hook != nil {
		hook(topic, data)
	}
	return doneToken{}
}
func (f *fakeClient) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topic)
	return doneToken{}
}
func (f *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return doneToken{}
}
func (f *fakeClient) Unsubscribe(...string) mqtt.Token        { return doneToken{} }
func (f *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (f *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (f *fakeClient) last() published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

func connected() (*MqttCommunicator, *fakeClient) {
	fc := &fakeClient{connected: true}
	mc := newCommunicator("test")
	mc.client = fc
	return mc, fc
}

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern, topic string
		want           bool
	}{
		{"pancy/request/mutes/active", "pancy/request/mutes/active", true},
		{"pancy/request/+/active", "pancy/request/mutes/active", true},
		{"pancy/request/+", "pancy/request/mutes/active", false},
		{"pancy/#", "pancy/request/mutes/active", true},
		{"pancy/events/#", "pancy/events", true},
		{"pancy/events/infractions/+", "pancy/events/infractions/g1", true},
		{"pancy/events/infractions/+", "pancy/events/infractions", false},
		{"pancy/a", "pancy/b", false},
	}
	for _, tt := range tests {
		if got := topicMatch(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("topicMatch(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestDispatchUsesWildcards(t *testing.T) {
	mc := newCommunicator("test")
	var got []string
	mc.routes["pancy/events/#"] = func(topic string, _ []byte) { got = append(got, "all:"+topic) }
	mc.routes["pancy/events/infractions/+"] = func(topic string, _ []byte) { got = append(got, "inf:"+topic) }
	mc.routes["other"] = func(topic string, _ []byte) { got = append(got, "other") }

	mc.dispatch("pancy/events/infractions/g1", nil)

	if len(got) != 2 {
		t.Errorf("handlers run = %v, want the two pancy/events routes", got)
	}
}

func TestSubscriptionsSurviveReconnect(t *testing.T) {
	mc := newCommunicator("test")
	fc := &fakeClient{}
	mc.client = fc

	// Not connected yet: routes are kept for later.
	if err := mc.Subscribe("pancy/request/a", func(string, []byte) {}); err != nil {
		t.Fatal(err)
	}
	if err := mc.Subscribe("pancy/request/b", func(string, []byte) {}); err != nil {
		t.Fatal(err)
	}
	if len(fc.subscribed) != 0 {
		t.Fatalf("subscribed while offline: %v", fc.subscribed)
	}

	fc.connected = true
	mc.onConnect(fc)
	if len(fc.subscribed) != 2 {
		t.Fatalf("after connect subscribed = %v", fc.subscribed)
	}

	if err := mc.Unsubscribe("pancy/request/a"); err != nil {
		t.Fatal(err)
	}
	fc.subscribed = nil
	mc.onConnect(fc)
	if len(fc.subscribed) != 1 || fc.subscribed[0] != "pancy/request/b" {
		t.Errorf("after reconnect subscribed = %v", fc.subscribed)
	}
}

func TestPublishOffline(t *testing.T) {
	mc := newCommunicator("test")
	if err := mc.Publish("x", 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestHandleRequest(t *testing.T) {
	data, _ := json.Marshal(MqttRequest{CorrelationID: "c1", Payload: map[string]interface{}{"guildId": "g"}})

	var seen map[string]interface{}
	topic, resp, ok := handleRequest("pancy/request/mutes/active", data, func(p map[string]interface{}) (interface{}, error) {
		seen = p
		return "ok", nil
	})
	if !ok {
		t.Fatal("handleRequest() rejected a valid request")
	}
	if topic != "pancy/response/mutes/active/c1" {
		t.Errorf("response topic = %q", topic)
	}
	if resp.CorrelationID != "c1" || resp.Data != "ok" || resp.Error != "" {
		t.Errorf("response = %+v", resp)
	}
	if seen["guildId"] != "g" || seen["_topic"] != "mutes/active" {
		t.Errorf("payload = %v", seen)
	}

	_, resp, _ = handleRequest("pancy/request/x", data, func(map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	if resp.Error != "boom" || resp.Data != nil {
		t.Errorf("error response = %+v", resp)
	}

	if _, _, ok := handleRequest("pancy/request/x", []byte("{"), nil); ok {
		t.Error("handleRequest() accepted malformed JSON")
	}
}

func TestRequestRoundTrip(t *testing.T) {
	mc, fc := connected()
	mc.On("echo", func(p map[string]interface{}) (interface{}, error) {
		return p["value"], nil
	})
	// Loop publishes back into the router as a broker would.
	fc.onPublish = func(topic string, payload []byte) { go mc.dispatch(topic, payload) }

	got, err := mc.Request("echo", map[string]interface{}{"value": "hola"}, time.Second)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if got != "hola" {
		t.Errorf("Request() = %v, want hola", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	mc, _ := connected()
	if _, err := mc.Request("nobody", nil, 20*time.Millisecond); err == nil {
		t.Error("Request() without responder returned no error")
	}
}

func TestOnInfractionPublishes(t *testing.T) {
	mc, fc := connected()
	inf := models.Infraction{ID: 7, GuildID: "g1", UserID: "u", Kind: models.KindBan, ModeratorID: "m"}

	mc.OnInfraction(context.Background(), inf)

	msg := fc.last()
	if msg.topic != "pancy/events/infractions/g1" {
		t.Errorf("topic = %q", msg.topic)
	}
	var event map[string]interface{}
	if err := json.Unmarshal(msg.payload, &event); err != nil {
		t.Fatal(err)
	}
	if event["type"] != "ban" || event["event"] != "infraction" || event["id"] != float64(7) {
		t.Errorf("event = %v", event)
	}

	// Offline publishing is swallowed.
	newCommunicator("off").OnInfraction(context.Background(), inf)
}

type muteStore struct {
	mutes []models.ActiveMute
	err   error
}

func (s muteStore) ListGuildMutes(_ context.Context, guildID string) ([]models.ActiveMute, error) {
	var out []models.ActiveMute
	for _, m := range s.mutes {
		if m.GuildID == guildID {
			out = append(out, m)
		}
	}
	return out, s.err
}

func TestActiveMutesHandler(t *testing.T) {
	store := muteStore{mutes: []models.ActiveMute{{UserID: "u", GuildID: "g1"}, {UserID: "v", GuildID: "g2"}}}
	h := ActiveMutesHandler(store, time.Second)

	got, err := h(map[string]interface{}{"guildId": "g1"})
	if err != nil {
		t.Fatal(err)
	}
	if mutes := got.([]models.ActiveMute); len(mutes) != 1 || mutes[0].UserID != "u" {
		t.Errorf("mutes = %v", mutes)
	}

	got, _ = h(map[string]interface{}{"guildId": "none"})
	if mutes := got.([]models.ActiveMute); mutes == nil || len(mutes) != 0 {
		t.Errorf("empty guild = %#v", got)
	}

	if _, err := h(map[string]interface{}{}); err == nil {
		t.Error("missing guildId accepted")
	}
	if _, err := ActiveMutesHandler(muteStore{err: errors.New("db")}, time.Second)(map[string]interface{}{"guildId": "g1"}); err == nil {
		t.Error("store error swallowed")
	}
}
