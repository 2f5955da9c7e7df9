package gateway

import (
	"context"
	"encoding/binary"
	"fmt"

	"zigbee-bridge/internal/capability"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/uart"
	"zigbee-bridge/internal/zcl"
)

// HandleIndication translates an adapter indication into the session-facing
// message model and routes it.
func (g *Gateway) HandleIndication(ctx context.Context, ind *uart.Indication) {
	ieee := device.FormatIEEE(ind.IEEE)
	switch ind.Kind {
	case uart.IndDeviceJoined:
		g.logger.Info("device joined", "device", ieee, "addr", fmt.Sprintf("0x%04X", ind.Addr))
		// Interview runs at the coordinator level; the gateway only learns
		// about the device once AddDevice is called with the result.
	case uart.IndDeviceLeft:
		g.logger.Info("device left", "device", ieee)
		if err := g.RemoveDevice(ieee); err != nil {
			g.logger.Warn("remove device", "device", ieee, "err", err)
		}
	case uart.IndDeviceAnnounce:
		g.HandleAnnounce(ctx, ieee)
	case uart.IndAttributeReport, uart.IndClusterCommand:
		msg := g.buildMessage(ieee, ind)
		if msg == nil {
			return
		}
		g.HandleMessage(ieee, msg)
	}
}

func (g *Gateway) buildMessage(ieee string, ind *uart.Indication) *capability.Message {
	g.mu.RLock()
	session, ok := g.sessions[ieee]
	g.mu.RUnlock()
	if !ok {
		g.logger.Debug("indication for unknown device", "device", ieee)
		return nil
	}

	msg := &capability.Message{
		ClusterID:   ind.ClusterID,
		Endpoint:    session.Device().Endpoint(ind.Endpoint),
		LinkQuality: ind.LinkQuality,
	}

	switch ind.Kind {
	case uart.IndAttributeReport:
		msg.Kind = capability.AttributeReport
		msg.Attributes = ind.Attributes
	case uart.IndClusterCommand:
		name := commandName(g.clusters, ind.ClusterID, ind.CommandID)
		msg.Kind = capability.CommandKind(name)
		msg.Payload = commandPayload(ind)
	}
	return msg
}

// commandName resolves the cluster command's registry name, falling back to
// a hex spelling for unregistered commands.
func commandName(reg *zcl.Registry, clusterID uint16, commandID uint8) string {
	if def := reg.Get(clusterID); def != nil {
		if cmd := def.FindCommand(commandID, zcl.DirectionToClient); cmd != nil {
			return cmd.Name
		}
	}
	return fmt.Sprintf("0x%02X", commandID)
}

// commandPayload extracts well-known command fields. Every command carries
// its id; the IAS zone-status notification additionally carries the status
// bitmap as its first two payload bytes.
func commandPayload(ind *uart.Indication) map[string]any {
	payload := map[string]any{
		"command_id": int64(ind.CommandID),
	}
	if ind.ClusterID == zcl.ClusterIASZone && ind.CommandID == 0x00 && len(ind.Payload) >= 2 {
		payload["zone_status"] = int64(binary.LittleEndian.Uint16(ind.Payload[:2]))
	}
	return payload
}
