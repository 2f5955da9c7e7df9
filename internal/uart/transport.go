package uart

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/zcl"
)

// Config holds serial adapter settings.
type Config struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Transport talks to the Zigbee adapter over a serial line and implements
// the device transport verbs. Requests are matched to responses by
// sequence number; unsolicited frames are delivered as indications.
type Transport struct {
	port   serial.Port
	reader *bufio.Reader
	logger *slog.Logger

	seq     atomic.Uint32
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint8]chan *frame

	handlerMu sync.RWMutex
	onInd     func(*Indication)

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open opens the serial port and starts the read loop.
func Open(cfg Config, logger *slog.Logger) (*Transport, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", cfg.Port, err)
	}
	t := &Transport{
		port:    port,
		reader:  bufio.NewReader(port),
		logger:  logger.With("component", "uart"),
		pending: make(map[uint8]chan *frame),
		done:    make(chan struct{}),
	}
	t.wg.Add(1)
	go t.readLoop()
	t.logger.Info("serial adapter opened", "port", cfg.Port, "baud", baud)
	return t, nil
}

// OnIndication registers the handler for adapter-initiated frames.
func (t *Transport) OnIndication(fn func(*Indication)) {
	t.handlerMu.Lock()
	t.onInd = fn
	t.handlerMu.Unlock()
}

// Close stops the read loop and closes the port.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.port.Close()
		t.wg.Wait()
	})
	return err
}

// PermitJoin opens the network for joining for the given duration.
func (t *Transport) PermitJoin(ctx context.Context, seconds uint8) error {
	_, err := t.request(ctx, cmdPermitJoin, []byte{seconds})
	return err
}

// Bind sends a ZDO bind request through the adapter.
func (t *Transport) Bind(ctx context.Context, req device.BindRequest) error {
	payload := appendUint16(nil, req.Addr)
	payload = append(payload, req.SrcIEEE[:]...)
	payload = append(payload, req.SrcEP)
	payload = appendUint16(payload, req.ClusterID)
	payload = append(payload, req.Dst.IEEE[:]...)
	payload = append(payload, req.Dst.Endpoint)
	_, err := t.request(ctx, cmdBind, payload)
	return err
}

// ReadAttributes reads attributes and returns the per-attribute results.
func (t *Transport) ReadAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, attrIDs []uint16) ([]device.AttrResult, error) {
	payload := t.addressHeader(addr, ep, clusterID)
	payload = append(payload, byte(len(attrIDs)))
	for _, id := range attrIDs {
		payload = appendUint16(payload, id)
	}
	resp, err := t.request(ctx, cmdRead, payload)
	if err != nil {
		return nil, err
	}
	parsed, err := parseReadResults(resp)
	if err != nil {
		return nil, fmt.Errorf("uart: read response: %w", err)
	}
	out := make([]device.AttrResult, 0, len(parsed))
	for _, r := range parsed {
		out = append(out, device.AttrResult{ID: r.ID, Status: r.Status, Type: r.Type, Value: r.Value})
	}
	return out, nil
}

// WriteAttributes writes attribute records.
func (t *Transport) WriteAttributes(ctx context.Context, addr uint16, ep uint8, clusterID uint16, records []device.WriteRecord) error {
	payload := t.addressHeader(addr, ep, clusterID)
	payload = append(payload, byte(len(records)))
	for _, rec := range records {
		encoded, err := zcl.EncodeValue(rec.Attr.Type, rec.Value)
		if err != nil {
			return fmt.Errorf("uart: encode attribute 0x%04X: %w", rec.Attr.ID, err)
		}
		payload = appendUint16(payload, rec.Attr.ID)
		payload = append(payload, rec.Attr.Type)
		payload = append(payload, encoded...)
	}
	_, err := t.request(ctx, cmdWrite, payload)
	return err
}

// Command sends a cluster-specific command.
func (t *Transport) Command(ctx context.Context, addr uint16, ep uint8, clusterID uint16, commandID uint8, cmdPayload []byte) error {
	payload := t.addressHeader(addr, ep, clusterID)
	payload = append(payload, commandID)
	payload = append(payload, cmdPayload...)
	_, err := t.request(ctx, cmdCluster, payload)
	return err
}

// ConfigureReporting sends reporting configuration records.
func (t *Transport) ConfigureReporting(ctx context.Context, addr uint16, ep uint8, clusterID uint16, records []device.ReportingRecord) error {
	payload := t.addressHeader(addr, ep, clusterID)
	payload = append(payload, byte(len(records)))
	for _, rec := range records {
		payload = appendUint16(payload, rec.Attr.ID)
		payload = append(payload, rec.Attr.Type)
		payload = appendUint16(payload, rec.MinInterval)
		payload = appendUint16(payload, rec.MaxInterval)
		payload = append(payload, byte(len(rec.ReportableChange)))
		payload = append(payload, rec.ReportableChange...)
	}
	_, err := t.request(ctx, cmdConfigure, payload)
	return err
}

func (t *Transport) addressHeader(addr uint16, ep uint8, clusterID uint16) []byte {
	payload := appendUint16(nil, addr)
	payload = append(payload, ep)
	return appendUint16(payload, clusterID)
}

// request sends one frame and waits for the matching response. The first
// response byte is the adapter status; the rest is returned to the caller.
func (t *Transport) request(ctx context.Context, cmd uint8, payload []byte) ([]byte, error) {
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("uart: payload too large: %d bytes", len(payload))
	}
	seq := uint8(t.seq.Add(1))
	ch := make(chan *frame, 1)

	t.pendingMu.Lock()
	t.pending[seq] = ch
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, seq)
		t.pendingMu.Unlock()
	}()

	f := &frame{cmd: cmd, seq: seq, payload: payload}
	t.writeMu.Lock()
	_, err := t.port.Write(f.encode())
	t.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("uart: write: %w", err)
	}

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	select {
	case resp := <-ch:
		if len(resp.payload) < 1 {
			return nil, fmt.Errorf("uart: empty response for cmd 0x%02X", cmd)
		}
		if status := resp.payload[0]; status != statusOK {
			return nil, fmt.Errorf("uart: cmd 0x%02X failed with adapter status 0x%02X", cmd, status)
		}
		return resp.payload[1:], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, fmt.Errorf("uart: transport closed")
	case <-time.After(timeout):
		return nil, fmt.Errorf("uart: cmd 0x%02X timed out", cmd)
	}
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	for {
		f, err := t.readFrame()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if err == io.EOF {
				t.logger.Error("serial port closed unexpectedly")
				return
			}
			t.logger.Warn("frame read failed", "err", err)
			continue
		}
		if f.cmd >= indReport {
			t.dispatchIndication(f)
			continue
		}
		t.pendingMu.Lock()
		ch, ok := t.pending[f.seq]
		t.pendingMu.Unlock()
		if !ok {
			t.logger.Debug("unmatched response", "cmd", f.cmd, "seq", f.seq)
			continue
		}
		ch <- f
	}
}

// readFrame scans to the next SOF and decodes one frame, verifying the
// checksum.
func (t *Transport) readFrame() (*frame, error) {
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == sof {
			break
		}
	}
	header := make([]byte, headerBytes)
	if _, err := io.ReadFull(t.reader, header); err != nil {
		return nil, err
	}
	length := int(header[0])
	rest := make([]byte, length+1) // payload plus checksum
	if _, err := io.ReadFull(t.reader, rest); err != nil {
		return nil, err
	}
	var fcs byte
	for _, b := range header {
		fcs ^= b
	}
	for _, b := range rest[:length] {
		fcs ^= b
	}
	if fcs != rest[length] {
		return nil, fmt.Errorf("checksum mismatch: got 0x%02X want 0x%02X", rest[length], fcs)
	}
	return &frame{cmd: header[1], seq: header[2], payload: rest[:length]}, nil
}

func (t *Transport) dispatchIndication(f *frame) {
	ind, err := parseIndication(f)
	if err != nil {
		t.logger.Warn("bad indication", "cmd", f.cmd, "err", err)
		return
	}
	t.handlerMu.RLock()
	fn := t.onInd
	t.handlerMu.RUnlock()
	if fn != nil {
		fn(ind)
	}
}

