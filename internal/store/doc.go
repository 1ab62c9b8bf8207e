// Package store holds the process-scoped state of officesync: rooms, sensors,
// actuators and notifications.
//
// Stores are explicitly constructed (see New) and passed by pointer to every
// consumer. Each store guards its data with one RWMutex, so a reader sees a
// mutation either completely or not at all. Readers always receive copies.
//
// # Change fan-out
//
// Every effective mutation publishes one Event on the shared Bus after the
// mutation is visible. A single dispatcher goroutine owned by the Bus
// delivers events to listeners in publish order, one at a time. A listener
// that panics is recovered and logged; the remaining listeners still run.
//
//	set := store.New(logger)
//	set.Start()
//	defer set.Close()
//
//	id := set.Notifications.AddListener(func(ev store.Event) {
//	    render(set.Notifications.All())
//	})
//	defer set.Notifications.RemoveListener(id)
//
// Removing or updating an id that is not present is a silent no-op and
// publishes nothing; out-of-order or duplicate server events are expected.
package store
