package telemetry

import (
	"fmt"
	"slices"
	"time"

	"github.com/alph853/IoT-smartOffice/internal/automation"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/influxdb"
	"github.com/alph853/IoT-smartOffice/internal/infrastructure/mqtt"
)

// Ingest results reported to the Observer.
const (
	ResultAccepted  = "accepted"
	ResultMalformed = "malformed"
	ResultUnknown   = "unknown_mcu"
)

// RoomResolver finds the room owning an MCU.
type RoomResolver interface {
	RoomOfMCU(mcuID int) (int, bool)
}

// Sink receives the accepted readings of one message in a single call.
// *automation.Controller implements it.
type Sink interface {
	UpdateReadings(roomID int, values map[automation.SensorType]float64, motion *bool)
}

// ReadingWriter stores readings as time series. *influxdb.Client implements it.
type ReadingWriter interface {
	WriteSensorReading(r influxdb.Reading)
}

// Observer counts ingested messages by result.
type Observer interface {
	ObserveTelemetry(result string)
}

// Ingester turns telemetry messages into readings.
//
// Thread Safety: Handle is safe for concurrent use once wiring (SetWriter,
// SetObserver) is complete.
type Ingester struct {
	rooms    RoomResolver
	sink     Sink
	writer   ReadingWriter
	observer Observer
	logger   Logger
	now      func() time.Time
}

// NewIngester creates an Ingester.
//
// Parameters:
//   - rooms: resolves the MCU id of the topic to a room
//   - sink: receives every accepted reading
//   - logger: Logger instance (nil for no logging)
func NewIngester(rooms RoomResolver, sink Sink, logger Logger) *Ingester {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ingester{rooms: rooms, sink: sink, logger: logger, now: time.Now}
}

// SetWriter attaches a time-series writer. Call before Handle is in use.
func (i *Ingester) SetWriter(w ReadingWriter) { i.writer = w }

// SetObserver attaches an observer. Call before Handle is in use.
func (i *Ingester) SetObserver(o Observer) { i.observer = o }

// Handle processes one telemetry message. Its signature matches
// mqtt.MessageHandler so it can be subscribed directly.
//
// Returns:
//   - error: ErrInvalidTopic, ErrMalformedPayload or ErrUnknownMCU; the
//     message is dropped in each case
func (i *Ingester) Handle(topic string, payload []byte) error {
	mcuID, ok := mqtt.Topics{}.ParseTelemetry(topic)
	if !ok {
		i.observe(ResultMalformed)
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	p, err := Parse(payload)
	if err != nil {
		i.observe(ResultMalformed)
		return fmt.Errorf("mcu %d: %w", mcuID, err)
	}

	roomID, ok := i.rooms.RoomOfMCU(mcuID)
	if !ok {
		i.observe(ResultUnknown)
		return fmt.Errorf("%w: %d", ErrUnknownMCU, mcuID)
	}

	if len(p.Skipped) > 0 {
		i.logger.Debug("telemetry values skipped", "mcu_id", mcuID, "keys", p.Skipped)
	}

	at := i.now()
	// Stable order keeps the writer output deterministic.
	channels := make([]automation.SensorType, 0, len(p.Values))
	for ch := range p.Values {
		channels = append(channels, ch)
	}
	slices.Sort(channels)

	i.sink.UpdateReadings(roomID, p.Values, p.Motion)
	if i.writer != nil {
		for _, ch := range channels {
			i.writer.WriteSensorReading(influxdb.Reading{
				MCUID: mcuID, RoomID: roomID, Sensor: string(ch), Value: p.Values[ch], At: at,
			})
		}
	}

	i.observe(ResultAccepted)
	return nil
}

func (i *Ingester) observe(result string) {
	if i.observer != nil {
		i.observer.ObserveTelemetry(result)
	}
}
