package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/service"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
)

// Wire events. Server to client.
const (
	EventCatalogSnapshot = "catalog-snapshot"
	EventCatalogUpdated  = "catalog-updated"
	EventErrorMessage    = "error-message"
)

// Client to server commands.
const (
	CommandCreateProduct = "create-product"
	CommandUpdateProduct = "update-product"
	CommandDeleteProduct = "delete-product"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Error string `json:"error"`
}

type updateCommand struct {
	ID      string          `json:"id"`
	Changes json.RawMessage `json:"changes"`
}

type deleteCommand struct {
	ID string `json:"id"`
}

// CommandHandler decodes client commands, applies them through the catalog
// service and produces the frames to reply and to fan out.
type CommandHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCommandHandler creates a handler bound to the catalog service.
func NewCommandHandler(catalog *service.CatalogService, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{catalog: catalog, logger: logger}
}

func marshalEvent(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	frame, _ := json.Marshal(Envelope{Event: event, Data: raw})
	return frame
}

func errorFrame(msg string) []byte {
	return marshalEvent(EventErrorMessage, errorData{Error: msg})
}

// Snapshot builds the full catalog frame sent to a single session. A failed
// catalog read degrades to an empty list so the connection still comes up.
func (h *CommandHandler) Snapshot(ctx context.Context) []byte {
	products, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		h.logger.Error("catalog snapshot failed, sending empty list", slog.String("error", err.Error()))
		products = []domain.Product{}
	}
	if products == nil {
		products = []domain.Product{}
	}
	return marshalEvent(EventCatalogSnapshot, products)
}

// catalogUpdated builds the fan-out frame after a successful mutation.
func (h *CommandHandler) catalogUpdated(ctx context.Context) []byte {
	products, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		h.logger.Error("catalog refresh failed, sending empty list", slog.String("error", err.Error()))
		products = []domain.Product{}
	}
	if products == nil {
		products = []domain.Product{}
	}
	return marshalEvent(EventCatalogUpdated, products)
}

// invalidID reports ids that browser form code sends when its state is
// broken. They must be rejected before touching the store.
func invalidID(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || id == "undefined" || id == "null"
}

// isJSONObject reports whether raw holds a JSON object, not an array or
// scalar.
func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Handle processes one inbound frame. It returns the frame to send back to
// the issuing session (nil when there is nothing to say to it) and the frame
// to fan out to every session (nil when the catalog did not change).
func (h *CommandHandler) Handle(ctx context.Context, raw []byte) (reply, broadcast []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errorFrame("invalid message: expected a JSON envelope with event and data"), nil
	}

	switch env.Event {
	case CommandCreateProduct:
		return h.handleCreate(ctx, env.Data)
	case CommandUpdateProduct:
		return h.handleUpdate(ctx, env.Data)
	case CommandDeleteProduct:
		return h.handleDelete(ctx, env.Data)
	default:
		return errorFrame("unknown event: " + env.Event), nil
	}
}

func (h *CommandHandler) handleCreate(ctx context.Context, data json.RawMessage) (reply, broadcast []byte) {
	if !isJSONObject(data) {
		return errorFrame("create-product data must be a JSON object"), nil
	}

	var input service.CreateProductInput
	if err := json.Unmarshal(data, &input); err != nil {
		return errorFrame("invalid product payload: " + err.Error()), nil
	}

	if _, err := h.catalog.CreateProduct(ctx, &input); err != nil {
		return errorFrame(apperrors.Message(err)), nil
	}
	return nil, h.catalogUpdated(ctx)
}

func (h *CommandHandler) handleUpdate(ctx context.Context, data json.RawMessage) (reply, broadcast []byte) {
	var cmd updateCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errorFrame("invalid update payload: " + err.Error()), nil
	}
	if invalidID(cmd.ID) {
		return errorFrame("a valid product id is required"), nil
	}
	if !isJSONObject(cmd.Changes) {
		return errorFrame("changes must be a JSON object"), nil
	}

	var input service.UpdateProductInput
	if err := json.Unmarshal(cmd.Changes, &input); err != nil {
		return errorFrame("invalid changes payload: " + err.Error()), nil
	}

	if _, err := h.catalog.UpdateProduct(ctx, strings.TrimSpace(cmd.ID), &input); err != nil {
		return errorFrame(apperrors.Message(err)), nil
	}
	return nil, h.catalogUpdated(ctx)
}

func (h *CommandHandler) handleDelete(ctx context.Context, data json.RawMessage) (reply, broadcast []byte) {
	var id string
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(data, &id); err != nil {
			return errorFrame("invalid delete payload: " + err.Error()), nil
		}
	} else {
		var cmd deleteCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return errorFrame("invalid delete payload: " + err.Error()), nil
		}
		id = cmd.ID
	}

	if invalidID(id) {
		return errorFrame("a valid product id is required"), nil
	}

	if _, err := h.catalog.DeleteProduct(ctx, strings.TrimSpace(id)); err != nil {
		return errorFrame(apperrors.Message(err)), nil
	}
	return nil, h.catalogUpdated(ctx)
}
