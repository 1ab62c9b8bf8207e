// Package command turns toggle and mode intents into outbound frames on the
// event stream, and wraps the backend REST calls the UI triggers.
//
// Every intent updates the local stores first (optimistic) and then sends.
// There is no acknowledgement: a later deviceUpdated frame from the backend
// is the authoritative correction when the optimistic value was wrong.
//
// User toggles are debounced per actuator. Within the debounce window only
// the first intent is sent; later ones fail with ErrDebounced and the
// actuator is republished so any UI that flipped its control re-reads the
// stored value. Automation transitions bypass the debounce.
package command
