// Package backend is the REST client for the smart-office backend.
//
// It covers the few endpoints the synchroniser needs beyond the push
// channel: the full office listing used for resynchronisation, the
// notification list and its read/delete operations, and MCU
// enable/disable/update.
//
// Every call is bounded by the configured request timeout on top of the
// caller's context. Non-2xx responses are returned as *StatusError, which
// matches ErrUnexpectedStatus under errors.Is.
package backend
