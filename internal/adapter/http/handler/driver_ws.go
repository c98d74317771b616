package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

// DriverWS streams driver positions from the driver app into UpdateLocation.
type DriverWS struct {
	service  DriverService
	hub      *ws.ConnectionHub
	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewDriverWS(service DriverService, hub *ws.ConnectionHub, l logger.Logger) *DriverWS {
	return &DriverWS{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The driver app is not a browser.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// HandleWS godoc
// @Summary      Driver location stream
// @Description  WebSocket. Each frame {"type":"location_update","latitude":..,"longitude":..} is applied like POST /drivers/{driver_id}/location and answered with a location_ack or error frame.
// @Tags         drivers
// @Param        driver_id path string true "Driver ID"
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/ws [get]
func (h *DriverWS) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_ws")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	conn := ws.NewConn(ctx, driverID, c)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register websocket", err)
		_ = conn.Close()
		return
	}
	metrics.WebSocketConnectionsGauge.Inc()
	defer func() {
		h.hub.Remove(conn)
		metrics.WebSocketConnectionsGauge.Dec()
	}()

	h.l.Info(ctx, "driver websocket connected")

	err = conn.Listen(func(raw json.RawMessage) error {
		return h.handleFrame(ctx, conn, raw)
	})
	if err != nil {
		h.l.Warn(ctx, "driver websocket closed", "error", err.Error())
		return
	}
	h.l.Info(ctx, "driver websocket disconnected")
}

// handleFrame answers bad frames with an error frame and keeps the socket open.
// Only a failed write ends the stream.
func (h *DriverWS) handleFrame(ctx context.Context, conn *ws.Conn, raw json.RawMessage) error {
	var frame dto.LocationFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return conn.Send(envelope{"type": "error", "error": "frame must be a JSON object"})
	}

	v := validator.New()
	frame.Validate(v)
	if !v.Valid() {
		return conn.Send(envelope{"type": "error", "error": v.Errors})
	}

	result, err := h.service.UpdateLocation(ctx, conn.EntityID(), frame.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to apply websocket location", err)
		return conn.Send(envelope{"type": "error", "error": errorMessage(err)})
	}

	return conn.Send(envelope{"type": "location_ack", "result": result})
}
