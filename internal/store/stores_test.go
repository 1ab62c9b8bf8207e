package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/alph853/IoT-smartOffice/internal/domain"
)

func newStartedSet(t *testing.T) *Set {
	t.Helper()
	set := New(nil)
	set.Start()
	t.Cleanup(set.Close)
	return set
}

func testRooms() []domain.Room {
	return []domain.Room{
		{
			ID: 1, Name: "Lab", Building: "H6", Room: "301",
			MCUs: []domain.MCU{{
				ID: 10, Name: "gw-a", OfficeID: 1, Status: "online",
				Sensors:   []domain.Sensor{{ID: 100, Name: "temp", Type: "temperature"}},
				Actuators: []domain.Actuator{{ID: 200, Name: "Fan", Type: "fan"}},
			}},
		},
		{ID: 2, Name: "Office", Building: "H6", Room: "302"},
	}
}

func TestNotificationStore_NewestFirst(t *testing.T) {
	s := NewNotificationStore(nil)
	s.Add(domain.Notification{ID: 1, Title: "first"})
	s.Add(domain.Notification{ID: 2, Title: "second"})
	s.Add(domain.Notification{ID: 3, Title: "third"})

	all := s.All()
	want := []int{3, 2, 1}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("All()[%d].ID = %d, want %d", i, all[i].ID, id)
		}
	}
}

func TestNotificationStore_DuplicateIDUpdates(t *testing.T) {
	s := NewNotificationStore(nil)
	s.Add(domain.Notification{ID: 1, Title: "a"})
	s.Add(domain.Notification{ID: 2, Title: "b"})
	s.Add(domain.Notification{ID: 1, Title: "a2"})

	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	all := s.All()
	if all[1].ID != 1 || all[1].Title != "a2" {
		t.Errorf("duplicate id should update in place, got %+v", all)
	}
}

func TestNotificationStore_RemoveMissingIsNoop(t *testing.T) {
	set := newStartedSet(t)
	var log eventLog
	set.Notifications.Add(domain.Notification{ID: 1})
	set.Notifications.Add(domain.Notification{ID: 2})
	flush(t, set.Bus)
	set.Notifications.AddListener(log.listen)

	before := set.Notifications.All()
	if set.Notifications.RemoveByID(99) {
		t.Error("RemoveByID(99) = true")
	}
	if set.Notifications.Update(domain.Notification{ID: 99}) {
		t.Error("Update(99) = true")
	}
	if set.Notifications.RemoveAt(5) {
		t.Error("RemoveAt(5) = true")
	}
	flush(t, set.Bus)

	after := set.Notifications.All()
	if len(after) != len(before) {
		t.Fatalf("contents changed: %v -> %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("contents changed: %v -> %v", before, after)
		}
	}
	if got := len(log.snapshot()); got != 0 {
		t.Errorf("no-op mutations published %d events", got)
	}
}

func TestNotificationStore_UnreadAndMarkRead(t *testing.T) {
	s := NewNotificationStore(nil)
	s.Add(domain.Notification{ID: 1})
	s.Add(domain.Notification{ID: 2, ReadStatus: true})
	s.Add(domain.Notification{ID: 3})

	if got := s.UnreadCount(); got != 2 {
		t.Fatalf("UnreadCount() = %d, want 2", got)
	}

	s.MarkRead(1)
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("after MarkRead UnreadCount() = %d, want 1", got)
	}

	s.MarkAllRead()
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("after MarkAllRead UnreadCount() = %d, want 0", got)
	}

	s.MarkAllUnread()
	if got := s.UnreadCount(); got != 3 {
		t.Errorf("after MarkAllUnread UnreadCount() = %d, want 3", got)
	}

	s.Clear()
	if s.Count() != 0 {
		t.Errorf("after Clear Count() = %d", s.Count())
	}
}

func TestNotificationStore_ListenerOncePerMutation(t *testing.T) {
	set := newStartedSet(t)
	var log eventLog
	id := set.Notifications.AddListener(log.listen)

	set.Notifications.Add(domain.Notification{ID: 1})
	set.Notifications.MarkRead(1)
	set.Notifications.RemoveByID(1)
	flush(t, set.Bus)

	events := log.snapshot()
	wantOps := []Op{OpAdd, OpUpdate, OpRemove}
	if len(events) != len(wantOps) {
		t.Fatalf("got %d events, want %d", len(events), len(wantOps))
	}
	for i, op := range wantOps {
		if events[i].Op != op {
			t.Errorf("event %d op = %s, want %s", i, events[i].Op, op)
		}
	}

	set.Notifications.RemoveListener(id)
	set.Notifications.Add(domain.Notification{ID: 2})
	flush(t, set.Bus)
	if got := len(log.snapshot()); got != 3 {
		t.Errorf("removed listener still invoked: %d events", got)
	}
}

func TestNotificationStore_ListenerSeesMutation(t *testing.T) {
	set := newStartedSet(t)

	counts := make(chan int, 1)
	set.Notifications.AddListener(func(Event) {
		counts <- set.Notifications.Count()
	})
	set.Notifications.Add(domain.Notification{ID: 7})
	flush(t, set.Bus)

	if got := <-counts; got != 1 {
		t.Errorf("listener observed Count() = %d, want 1", got)
	}
}

func TestNotificationStore_NextLocalID(t *testing.T) {
	s := NewNotificationStore(nil)
	a, b := s.NextLocalID(), s.NextLocalID()
	if a >= 0 || b >= a {
		t.Errorf("NextLocalID() = %d, %d; want strictly decreasing negatives", a, b)
	}
}

func TestRoomStore_UpsertMCU(t *testing.T) {
	tests := []struct {
		name        string
		mcu         domain.MCU
		wantErr     error
		wantCreated bool
		wantRoom    int
		wantCounts  map[int]int
	}{
		{
			name:        "replace in place keeps identity",
			mcu:         domain.MCU{ID: 10, Name: "renamed", OfficeID: 1, Status: "offline"},
			wantCreated: false,
			wantRoom:    1,
			wantCounts:  map[int]int{1: 1, 2: 0},
		},
		{
			name:        "unknown id is appended",
			mcu:         domain.MCU{ID: 11, Name: "gw-b", OfficeID: 1},
			wantCreated: true,
			wantRoom:    1,
			wantCounts:  map[int]int{1: 2, 2: 0},
		},
		{
			name:        "office change moves ownership",
			mcu:         domain.MCU{ID: 10, Name: "gw-a", OfficeID: 2},
			wantCreated: false,
			wantRoom:    2,
			wantCounts:  map[int]int{1: 0, 2: 1},
		},
		{
			name:       "unknown office is rejected",
			mcu:        domain.MCU{ID: 12, OfficeID: 99},
			wantErr:    ErrRoomNotFound,
			wantCounts: map[int]int{1: 1, 2: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRoomStore(nil)
			s.ReplaceAll(testRooms())

			stored, created, err := s.UpsertMCU(tt.mcu)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpsertMCU() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				if created != tt.wantCreated {
					t.Errorf("created = %v, want %v", created, tt.wantCreated)
				}
				if roomID, _ := s.RoomOfMCU(tt.mcu.ID); roomID != tt.wantRoom {
					t.Errorf("RoomOfMCU = %d, want %d", roomID, tt.wantRoom)
				}
				if stored.Location == "" {
					t.Error("stored MCU has no derived location")
				}
			}
			for roomID, want := range tt.wantCounts {
				room, _ := s.Get(roomID)
				if len(room.MCUs) != want {
					t.Errorf("room %d has %d MCUs, want %d", roomID, len(room.MCUs), want)
				}
			}
		})
	}
}

func TestRoomStore_UpsertPreservesPosition(t *testing.T) {
	s := NewRoomStore(nil)
	rooms := testRooms()
	rooms[0].MCUs = append(rooms[0].MCUs, domain.MCU{ID: 11, OfficeID: 1})
	s.ReplaceAll(rooms)

	if _, _, err := s.UpsertMCU(domain.MCU{ID: 10, Name: "new-name", OfficeID: 1}); err != nil {
		t.Fatalf("UpsertMCU() error = %v", err)
	}

	room, _ := s.Get(1)
	if room.MCUs[0].ID != 10 || room.MCUs[0].Name != "new-name" {
		t.Errorf("MCUs = %+v, want id 10 first and renamed", room.MCUs)
	}
	if room.MCUs[0].Location != "O1-H6-301" {
		t.Errorf("Location = %q, want O1-H6-301", room.MCUs[0].Location)
	}
}

func TestRoomStore_ReplaceAllDeduplicatesMCUs(t *testing.T) {
	s := NewRoomStore(nil)
	rooms := testRooms()
	rooms[1].MCUs = []domain.MCU{{ID: 10, OfficeID: 2}}
	s.ReplaceAll(rooms)

	r1, _ := s.Get(1)
	r2, _ := s.Get(2)
	if len(r1.MCUs) != 1 || len(r2.MCUs) != 0 {
		t.Errorf("MCU 10 owned by more than one room: %d / %d", len(r1.MCUs), len(r2.MCUs))
	}
}

func TestRoomStore_RemoveTolerance(t *testing.T) {
	s := NewRoomStore(nil)
	s.ReplaceAll(testRooms())

	if s.RemoveByID(42) {
		t.Error("RemoveByID(42) = true")
	}
	if s.RemoveMCU(42) {
		t.Error("RemoveMCU(42) = true")
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
	if s.SetMCUStatus(42, "offline") {
		t.Error("SetMCUStatus(42) = true")
	}
}

func TestRoomStore_GetReturnsCopy(t *testing.T) {
	s := NewRoomStore(nil)
	s.ReplaceAll(testRooms())

	room, _ := s.Get(1)
	room.MCUs[0].Name = "mutated"

	again, _ := s.Get(1)
	if again.MCUs[0].Name == "mutated" {
		t.Error("Get() exposed internal state")
	}
}

func TestSet_IngestMCU(t *testing.T) {
	set := New(nil)
	set.LoadRooms(testRooms())

	mcu := domain.MCU{
		ID: 11, OfficeID: 2,
		Sensors:   []domain.Sensor{{ID: 101, Type: "light"}},
		Actuators: []domain.Actuator{{ID: 201, Name: "Lamp", Type: "led4rgb"}},
	}
	if _, created, err := set.IngestMCU(mcu); err != nil || !created {
		t.Fatalf("IngestMCU() = created %v, err %v", created, err)
	}

	if set.Sensors.Count() != 2 {
		t.Errorf("Sensors.Count() = %d, want 2", set.Sensors.Count())
	}
	dev, ok := set.Actuators.Device(201)
	if !ok {
		t.Fatal("Device(201) missing")
	}
	if dev.Type != domain.DeviceTypeBulb || dev.RoomID != 2 || dev.MCUID != 11 {
		t.Errorf("Device(201) = %+v", dev)
	}

	if !set.RemoveMCU(11) {
		t.Fatal("RemoveMCU(11) = false")
	}
	if _, ok := set.Actuators.Get(201); ok {
		t.Error("actuator survived MCU removal")
	}
	if len(set.Sensors.ForMCU(11)) != 0 {
		t.Error("sensor survived MCU removal")
	}
}

func TestActuatorStore_ServerStateWins(t *testing.T) {
	set := New(nil)
	set.LoadRooms(testRooms())

	// Optimistic local change.
	if _, err := set.Actuators.SetOn(200, true); err != nil {
		t.Fatalf("SetOn() error = %v", err)
	}
	if !set.Actuators.IsOn(200) {
		t.Fatal("optimistic SetOn not visible")
	}

	// Payload without state keeps the hint.
	mcu := testRooms()[0].MCUs[0]
	if _, _, err := set.IngestMCU(mcu); err != nil {
		t.Fatalf("IngestMCU() error = %v", err)
	}
	if !set.Actuators.IsOn(200) {
		t.Error("stateless payload discarded local hint")
	}

	// Payload with state overrides it.
	off := false
	mcu.Actuators[0].State = &off
	if _, _, err := set.IngestMCU(mcu); err != nil {
		t.Fatalf("IngestMCU() error = %v", err)
	}
	if set.Actuators.IsOn(200) {
		t.Error("server state did not override optimistic value")
	}
}

func TestActuatorStore_SetOnUnknown(t *testing.T) {
	s := NewActuatorStore(nil)
	if _, err := s.SetOn(1, true); !errors.Is(err, ErrActuatorNotFound) {
		t.Errorf("SetOn() error = %v, want ErrActuatorNotFound", err)
	}
	if _, err := s.SetMode(1, domain.ModeAuto); !errors.Is(err, ErrActuatorNotFound) {
		t.Errorf("SetMode() error = %v, want ErrActuatorNotFound", err)
	}
}

func TestActuatorStore_RevertRepublishes(t *testing.T) {
	set := newStartedSet(t)
	set.LoadRooms(testRooms())
	if err := set.Bus.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []Event
	set.Bus.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	}, TopicActuators)

	if !set.Actuators.Revert(200) {
		t.Fatal("Revert(200) = false")
	}
	if set.Actuators.Revert(999) {
		t.Error("Revert(unknown) = true")
	}
	if err := set.Bus.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Op != OpUpdate || got[0].ID != 200 {
		t.Errorf("events = %+v, want one update for 200", got)
	}
	if set.Actuators.IsOn(200) {
		t.Error("Revert changed the value")
	}
}

func TestActuatorStore_ReplaceAllKeepsHints(t *testing.T) {
	set := New(nil)
	set.LoadRooms(testRooms())
	if _, err := set.Actuators.SetOn(200, true); err != nil {
		t.Fatal(err)
	}

	set.LoadRooms(testRooms())

	if !set.Actuators.IsOn(200) {
		t.Error("resync dropped on/off hint for surviving actuator")
	}
	if got := set.Actuators.RoomIDs(); len(got) != 1 || got[0] != 1 {
		t.Errorf("RoomIDs() = %v, want [1]", got)
	}
	if got := len(set.Actuators.DevicesForRoom(1)); got != 1 {
		t.Errorf("DevicesForRoom(1) = %d devices, want 1", got)
	}
}

func TestStores_ConcurrentAccess(t *testing.T) {
	set := newStartedSet(t)
	set.LoadRooms(testRooms())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				set.Notifications.Add(domain.Notification{ID: i*100 + j})
				_, _ = set.Actuators.SetOn(200, j%2 == 0)
				_, _, _ = set.IngestMCU(domain.MCU{ID: 10, OfficeID: 1 + j%2})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = set.Notifications.All()
				_ = set.Rooms.All()
				_ = set.Actuators.Devices()
				_ = set.Notifications.UnreadCount()
			}
		}()
	}
	wg.Wait()
	flush(t, set.Bus)

	if got := set.Notifications.Count(); got != 200 {
		t.Errorf("Count() = %d, want 200", got)
	}
	owners := 0
	for _, r := range set.Rooms.All() {
		if r.MCUIndex(10) >= 0 {
			owners++
		}
	}
	if owners != 1 {
		t.Errorf("MCU 10 owned by %d rooms, want 1", owners)
	}
}

func TestSet_ReadersSeeWholeIngestion(t *testing.T) {
	set := newStartedSet(t)
	rooms := testRooms()
	set.LoadRooms(rooms)
	mcu := rooms[0].MCUs[0]

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var partial, partialView int
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, r := range set.Rooms.All() {
				for _, m := range r.MCUs {
					if len(set.Sensors.ForMCU(m.ID)) != len(m.Sensors) {
						partial++
					}
				}
			}
			set.View(func(v View) {
				for _, r := range v.Rooms() {
					for _, m := range r.MCUs {
						if len(v.SensorsForMCU(m.ID)) != len(m.Sensors) || len(v.DevicesForRoom(r.ID)) != len(m.Actuators) {
							partialView++
						}
					}
				}
			})
		}
	}()

	for i := 0; i < 500; i++ {
		if _, _, err := set.IngestMCU(mcu); err != nil {
			t.Fatalf("IngestMCU() error = %v", err)
		}
		if i%50 == 0 {
			set.LoadRooms(testRooms())
		}
	}
	close(stop)
	wg.Wait()

	if partial != 0 || partialView != 0 {
		t.Errorf("readers saw a partial ingestion %d times (view %d)", partial, partialView)
	}
}

func TestRoomStore_DropsServerState(t *testing.T) {
	set := New(nil)
	rooms := testRooms()
	on := true
	rooms[0].MCUs[0].Actuators[0].State = &on
	set.LoadRooms(rooms)

	if !set.Actuators.IsOn(200) {
		t.Fatal("server state from snapshot not applied")
	}
	mcu, _, _ := set.Rooms.FindMCU(10)
	if mcu.Actuators[0].State != nil {
		t.Error("room copy kept actuator state after LoadRooms")
	}

	off := false
	mcu.Actuators[0].State = &off
	stored, _, err := set.IngestMCU(mcu)
	if err != nil {
		t.Fatalf("IngestMCU() error = %v", err)
	}
	if stored.Actuators[0].State != nil {
		t.Error("IngestMCU returned actuator state")
	}
	if set.Actuators.IsOn(200) {
		t.Error("server state from device payload not applied")
	}

	// A replayed room copy must not undo a later local change.
	if _, err := set.Actuators.SetOn(200, true); err != nil {
		t.Fatal(err)
	}
	again, _, _ := set.Rooms.FindMCU(10)
	if _, _, err := set.IngestMCU(again); err != nil {
		t.Fatal(err)
	}
	if !set.Actuators.IsOn(200) {
		t.Error("replayed room copy reverted the local value")
	}
}

func TestRoomStore_UpdateMCUInfo(t *testing.T) {
	set := newStartedSet(t)
	set.LoadRooms(testRooms())
	flush(t, set.Bus)

	var mu sync.Mutex
	var got []Event
	set.Bus.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	info := domain.MCU{Name: "gw-renamed", Description: "north wall", FWVersion: "1.2", Model: "esp32"}
	if !set.Rooms.UpdateMCUInfo(10, info) {
		t.Fatal("UpdateMCUInfo(10) = false")
	}
	if !set.Rooms.UpdateMCUInfo(10, info) {
		t.Fatal("repeated UpdateMCUInfo(10) = false")
	}
	if set.Rooms.UpdateMCUInfo(99, info) {
		t.Error("UpdateMCUInfo(unknown) = true")
	}
	flush(t, set.Bus)

	mcu, roomID, _ := set.Rooms.FindMCU(10)
	if mcu.Name != "gw-renamed" || mcu.Model != "esp32" || roomID != 1 || len(mcu.Sensors) != 1 {
		t.Errorf("FindMCU(10) = %+v in room %d", mcu, roomID)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Topic != TopicRooms || got[0].ID != 1 {
		t.Errorf("events = %+v, want one rooms update for 1", got)
	}
}

func TestNotificationStore_EventOrderMatchesMutations(t *testing.T) {
	set := newStartedSet(t)

	var mu sync.Mutex
	var added []int
	set.Notifications.AddListener(func(ev Event) {
		mu.Lock()
		added = append(added, ev.ID)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				set.Notifications.Add(domain.Notification{ID: w*1000 + j})
			}
		}(w)
	}
	wg.Wait()
	flush(t, set.Bus)

	// Add inserts at the head, so the store is the reverse of the event order.
	all := set.Notifications.All()
	mu.Lock()
	defer mu.Unlock()
	if len(added) != len(all) {
		t.Fatalf("events = %d, stored = %d", len(added), len(all))
	}
	for i, n := range all {
		if added[len(added)-1-i] != n.ID {
			t.Fatalf("event order differs from mutation order at %d: event %d, stored %d",
				i, added[len(added)-1-i], n.ID)
		}
	}
}
