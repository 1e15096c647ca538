package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hypernova-labs/cadastro-service/internal/database"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Nomes dos eventos entregues aos clientes
const (
	EventRequestCreated      = "request:created"
	EventRequestItemChanged  = "request:item_changed"
	EventProductChanged      = "product:changed"
	EventMessageCreated      = "message:created"
	EventMessageRead         = "message:read"
	EventConversationCreated = "conversation:created"
)

// redisChannel é o canal pub/sub que espalha eventos entre instâncias
const redisChannel = "cadastro:realtime"

// HubNotifier implementa services.Notifier entregando os eventos no hub
// local e, quando o Redis está disponível, replicando para as outras
// instâncias via pub/sub. Tudo best-effort.
type HubNotifier struct {
	hub      *Hub
	redis    *database.Redis
	instance string
	logger   *logrus.Logger
}

// NewHubNotifier cria o notifier. redis pode ser nil (instância única).
func NewHubNotifier(hub *Hub, redis *database.Redis, logger *logrus.Logger) *HubNotifier {
	return &HubNotifier{
		hub:      hub,
		redis:    redis,
		instance: uuid.NewString(),
		logger:   logger,
	}
}

func (n *HubNotifier) emit(conversationID int64, event string, data interface{}) {
	ev := Envelope{Event: event, Data: data, Origin: n.instance}
	if conversationID != 0 {
		n.hub.Emit(conversationID, ev)
	} else {
		n.hub.Broadcast(ev)
	}

	if n.redis == nil {
		return
	}
	payload, err := json.Marshal(bridgeFrame{ConversationID: conversationID, Envelope: ev})
	if err != nil {
		n.logger.WithError(err).Error("Could not marshal bridge frame")
		return
	}
	if err := n.redis.PublishJSON(redisChannel, payload); err != nil {
		n.logger.WithError(err).Warn("Could not publish realtime event to Redis")
	}
}

// RequestCreated implementa services.Notifier
func (n *HubNotifier) RequestCreated(ev models.RequestCreatedEvent) {
	n.emit(ev.ConversationID, EventRequestCreated, ev)
}

// RequestItemChanged implementa services.Notifier
func (n *HubNotifier) RequestItemChanged(ev models.RequestItemChangedEvent) {
	n.emit(ev.ConversationID, EventRequestItemChanged, ev)
}

// ProductChanged implementa services.Notifier
func (n *HubNotifier) ProductChanged(ev models.ProductChangedEvent) {
	n.emit(0, EventProductChanged, ev)
}

// MessageCreated implementa services.Notifier
func (n *HubNotifier) MessageCreated(ev models.MessageCreatedEvent) {
	n.emit(ev.ConversationID, EventMessageCreated, ev)
}

// MessageRead implementa services.Notifier
func (n *HubNotifier) MessageRead(ev models.MessageReadEvent) {
	n.emit(ev.ConversationID, EventMessageRead, ev)
}

// ConversationCreated implementa services.Notifier
func (n *HubNotifier) ConversationCreated(ev models.ConversationCreatedEvent) {
	n.emit(0, EventConversationCreated, ev)
}

// bridgeFrame é o quadro serializado no canal Redis
type bridgeFrame struct {
	ConversationID int64    `json:"conversation_id"`
	Envelope       Envelope `json:"envelope"`
}

// RunBridge assina o canal Redis e reentrega no hub local os eventos
// publicados por outras instâncias. Bloqueia até o contexto encerrar.
func (n *HubNotifier) RunBridge(ctx context.Context) {
	if n.redis == nil {
		return
	}

	sub := n.redis.Subscribe(ctx, redisChannel)
	defer sub.Close()

	n.logger.WithField("channel", redisChannel).Info("Realtime bridge subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				n.logger.WithError(err).Warn("Dropping malformed bridge frame")
				continue
			}
			// Eventos da própria instância já foram entregues localmente
			if frame.Envelope.Origin == n.instance {
				continue
			}
			if frame.ConversationID != 0 {
				n.hub.Emit(frame.ConversationID, frame.Envelope)
			} else {
				n.hub.Broadcast(frame.Envelope)
			}
		}
	}
}
