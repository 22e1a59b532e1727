// Package mqtt provides MQTT communication capabilities for the bot.
// It supports publish/subscribe patterns with request/response functionality
// and publishes moderation events for other PancyStudios services.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	requestPrefix  = "pancy/request/"
	responsePrefix = "pancy/response/"
	tokenTimeout   = 10 * time.Second
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// MessageHandler receives a message published on a subscribed pattern.
type MessageHandler func(topic string, payload []byte)

// MqttCommunicator handles MQTT communication. Every subscription is kept in
// a route table, replayed after each reconnect, and incoming messages are
// dispatched to every route whose pattern matches the topic.
type MqttCommunicator struct {
	client   mqtt.Client
	clientID string

	mu     sync.RWMutex
	routes map[string]MessageHandler
}

// NewMqttCommunicator creates a new MQTT communicator and starts connecting.
// The broker being down is not fatal; paho keeps retrying in the background.
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := newCommunicator(clientID)

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetDefaultPublishHandler(func(c mqtt.Client, msg mqtt.Message) {
			mc.dispatch(msg.Topic(), msg.Payload())
		}).
		SetOnConnectHandler(mc.onConnect).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if !token.WaitTimeout(tokenTimeout) {
		logger.Warn("El broker MQTT no respondió, se seguirá reintentando en segundo plano", "MQTT")
	} else if token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

func newCommunicator(clientID string) *MqttCommunicator {
	return &MqttCommunicator{
		clientID: clientID,
		routes:   make(map[string]MessageHandler),
	}
}

// onConnect restores the subscriptions lost with the previous session.
func (mc *MqttCommunicator) onConnect(c mqtt.Client) {
	logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", mc.clientID), "MQTT")

	mc.mu.RLock()
	patterns := make([]string, 0, len(mc.routes))
	for p := range mc.routes {
		patterns = append(patterns, p)
	}
	mc.mu.RUnlock()

	for _, p := range patterns {
		if err := wait(c.Subscribe(p, 0, nil)); err != nil {
			logger.Error(fmt.Sprintf("Error al resuscribir %s: %v", p, err), "MQTT")
		}
	}
	if len(patterns) > 0 {
		logger.Info(fmt.Sprintf("%d suscripciones restauradas", len(patterns)), "MQTT")
	}
}

func wait(token mqtt.Token) error {
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("timeout esperando al broker")
	}
	return token.Error()
}

// dispatch hands a message to every route matching its topic.
func (mc *MqttCommunicator) dispatch(topic string, payload []byte) {
	mc.mu.RLock()
	var handlers []MessageHandler
	for pattern, h := range mc.routes {
		if topicMatch(pattern, topic) {
			handlers = append(handlers, h)
		}
	}
	mc.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("Mensaje MQTT sin ruta: "+topic, "MQTT")
		return
	}
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends a message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return wait(mc.client.Publish(topic, 0, false, jsonData))
}

// Subscribe registers handler for pattern, which may contain '+' and '#'
// wildcards. The subscription survives reconnects.
func (mc *MqttCommunicator) Subscribe(pattern string, handler MessageHandler) error {
	mc.mu.Lock()
	mc.routes[pattern] = handler
	mc.mu.Unlock()

	if !mc.IsConnected() {
		// onConnect subscribes once the broker is reachable.
		return nil
	}
	return wait(mc.client.Subscribe(pattern, 0, nil))
}

// Unsubscribe unsubscribes from a topic
func (mc *MqttCommunicator) Unsubscribe(pattern string) error {
	mc.mu.Lock()
	delete(mc.routes, pattern)
	mc.mu.Unlock()

	if !mc.IsConnected() {
		return nil
	}
	return wait(mc.client.Unsubscribe(pattern))
}

// Request sends a request and waits for a response
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	correlationID := uuid.New().String()
	requestTopic := requestPrefix + topic
	responseTopic := fmt.Sprintf("%s%s/%s", responsePrefix, topic, correlationID)

	responseChan := make(chan MqttResponse, 1)

	err := mc.Subscribe(responseTopic, func(_ string, data []byte) {
		var response MqttResponse
		if err := json.Unmarshal(data, &response); err != nil {
			logger.Warn(fmt.Sprintf("Respuesta MQTT inválida en %s: %v", responseTopic, err), "MQTT")
			return
		}
		if response.CorrelationID != correlationID {
			return
		}
		select {
		case responseChan <- response:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer mc.Unsubscribe(responseTopic)

	if err := mc.Publish(requestTopic, MqttRequest{CorrelationID: correlationID, Payload: payload}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case <-timer.C:
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for a request topic. The topic may contain
// wildcards; the handler sees the concrete topic under the "_topic" key.
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) {
	pattern := requestPrefix + requestTopic

	err := mc.Subscribe(pattern, func(topic string, data []byte) {
		responseTopic, response, ok := handleRequest(topic, data, callback)
		if !ok {
			return
		}
		if err := mc.Publish(responseTopic, response); err != nil {
			logger.Error(fmt.Sprintf("Error respondiendo en %s: %v", responseTopic, err), "MQTT")
		}
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", pattern, err), "MQTT")
	}
}

// handleRequest decodes a request, runs callback and builds the response.
func handleRequest(topic string, data []byte, callback RequestHandler) (string, MqttResponse, bool) {
	var request MqttRequest
	if err := json.Unmarshal(data, &request); err != nil {
		logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
		return "", MqttResponse{}, false
	}

	actualTopic := strings.TrimPrefix(topic, requestPrefix)
	responseTopic := fmt.Sprintf("%s%s/%s", responsePrefix, actualTopic, request.CorrelationID)

	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = actualTopic

	response := MqttResponse{CorrelationID: request.CorrelationID}
	result, err := callback(payloadMap)
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Data = result
	}
	return responseTopic, response, true
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	patternLen := len(patternParts)
	topicLen := len(topicParts)

	for i := 0; i < patternLen; i++ {
		if patternParts[i] == "#" {
			return true
		}
		if i >= topicLen {
			return false
		}
		if patternParts[i] == "+" {
			continue
		}
		if patternParts[i] != topicParts[i] {
			return false
		}
	}

	return patternLen == topicLen
}
