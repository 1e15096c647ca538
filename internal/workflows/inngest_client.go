package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/config"
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/inngest/inngestgo"
	"github.com/sirupsen/logrus"
)

// Eventos publicados no Inngest
const (
	EventItemFinalized = "cadastro/request.item.finalized"
)

// InngestClient publica eventos de domínio para o pipeline assíncrono
// (sincronização com sistemas a jusante, relatórios).
type InngestClient struct {
	client inngestgo.Client
	logger *logrus.Logger
}

// NewInngestClient cria uma nova instância do cliente
func NewInngestClient(cfg *config.Config, logger *logrus.Logger) (*InngestClient, error) {
	if cfg.Inngest.EventKey == "" {
		return nil, fmt.Errorf("INNGEST_EVENT_KEY not configured")
	}
	if cfg.Inngest.SigningKey == "" {
		return nil, fmt.Errorf("INNGEST_SIGNING_KEY not configured")
	}

	client, err := inngestgo.NewClient(inngestgo.ClientOpts{
		EventKey:   &cfg.Inngest.EventKey,
		SigningKey: &cfg.Inngest.SigningKey,
		AppID:      cfg.Inngest.AppID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Inngest client: %w", err)
	}

	return &InngestClient{
		client: client,
		logger: logger,
	}, nil
}

// EmitItemFinalized implementa services.WorkflowEmitter. O envio é
// best-effort: falha vira log.
func (c *InngestClient) EmitItemFinalized(ev models.ProductChangedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.client.Send(ctx, inngestgo.Event{
		Name: EventItemFinalized,
		Data: map[string]any{
			"product_id":   ev.ProductID,
			"created":      ev.Created,
			"codigo_atual": ev.CodigoAtual,
			"descricao":    ev.Descricao,
			"item_id":      ev.ItemID,
			"changed_by":   ev.ChangedBy,
		},
	})
	if err != nil {
		c.logger.WithError(err).WithField("item_id", ev.ItemID).Warn("Could not send Inngest event")
		return
	}

	c.logger.WithFields(logrus.Fields{
		"event":   EventItemFinalized,
		"item_id": ev.ItemID,
	}).Info("Inngest event sent")
}

// GetClient retorna o cliente Inngest subjacente
func (c *InngestClient) GetClient() inngestgo.Client {
	return c.client
}
