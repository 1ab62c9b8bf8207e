// Package stream is the client side of the backend's push channel.
//
// A Client owns one WebSocket connection at a time. Inbound frames are JSON
// envelopes ({"method", "params"}) that are decoded and applied to the
// shared stores:
//
//	newDeviceConnected  upsert the MCU into the room named by office_id
//	deviceUpdated       same, replacing the MCU in place when it exists
//	notification        insert at the head of the notification store
//
// Nothing a frame contains can break the connection: malformed frames,
// unknown methods and references to unknown offices are logged and dropped.
//
// # Connection lifecycle
//
//	Disconnected -> Connecting -> Connected -> Failed -> (delay) -> Connecting
//	                                        \-> Disconnected
//
// Connect is idempotent and asynchronous. A transport failure schedules
// exactly one reconnect on a timer, and the reconnect is just Connect, so it
// cannot race a manual Connect into two sockets. Disconnect and Close stop
// the timer; Close also refuses every later Connect.
//
// # Early notifications
//
// Notifications that arrive before SetUIReady is called are held in a FIFO
// buffer. SetUIReady drains it once, in arrival order, while holding the
// same lock live arrivals take, so nothing can overtake a buffered entry.
package stream
