package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s := Open(path)
	if s == nil {
		t.Fatal("Open returned nil for a valid temp path")
	}
	return s
}

func TestOpenWithEmptyPathIsDegraded(t *testing.T) {
	if s := Open(""); s != nil {
		t.Fatal("expected Open(\"\") to return a nil, degraded-mode Store")
	}
}

func TestSaveRoomOnNilStoreIsNoOp(t *testing.T) {
	var s *Store
	s.SaveRoom(RoomRecord{Code: "abcde"}) // must not panic
}

func TestSaveAndLoadRoomRoundTrips(t *testing.T) {
	s := openTestStore(t)
	rec := RoomRecord{
		Code:      "abcde",
		Status:    "waiting",
		CreatedAt: time.Now().Truncate(time.Second),
		Members: []MemberRecord{
			{Pid: "p1", Name: "Alice", IsAI: false},
			{Pid: "p2", Name: "Bob Bot", IsAI: true},
		},
		Options: json.RawMessage(`{"slamdownsAllowed":true}`),
	}
	s.SaveRoom(rec)

	records, err := s.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 room, got %d", len(records))
	}
	got := records[0]
	if got.Code != rec.Code || got.Status != rec.Status {
		t.Fatalf("unexpected round-tripped room: %+v", got)
	}
	if len(got.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got.Members))
	}
}

func TestSaveRoomUpsertsWithoutDuplicating(t *testing.T) {
	s := openTestStore(t)
	rec := RoomRecord{Code: "abcde", Status: "waiting", CreatedAt: time.Now()}
	s.SaveRoom(rec)
	rec.Status = "playing"
	s.SaveRoom(rec)

	records, err := s.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 room after two saves, got %d", len(records))
	}
	if records[0].Status != "playing" {
		t.Fatalf("expected the second save's status to win, got %q", records[0].Status)
	}
}

func TestLoadRoomsDeletesStaleWaitingRooms(t *testing.T) {
	s := openTestStore(t)
	rec := RoomRecord{Code: "abcde", Status: "waiting", CreatedAt: time.Now().Add(-13 * time.Hour)}
	s.SaveRoom(rec)

	records, err := s.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected the stale waiting room to be deleted, got %d rooms", len(records))
	}
}

func TestLoadRoomsAgesOutOldPlayingRooms(t *testing.T) {
	s := openTestStore(t)
	rec := RoomRecord{Code: "abcde", Status: "playing", CreatedAt: time.Now().Add(-8 * 24 * time.Hour)}
	s.SaveRoom(rec)

	records, err := s.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	if len(records) != 1 || records[0].Status != "finished" {
		t.Fatalf("expected the old playing room to be aged out to finished, got %+v", records)
	}
}

func TestDeleteRoomRemovesMembersAndGameState(t *testing.T) {
	s := openTestStore(t)
	rec := RoomRecord{
		Code:      "abcde",
		Status:    "waiting",
		CreatedAt: time.Now(),
		Members:   []MemberRecord{{Pid: "p1", Name: "Alice"}},
		GameJSON:  json.RawMessage(`{}`),
	}
	s.SaveRoom(rec)
	s.DeleteRoom("abcde")

	records, err := s.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no rooms after delete, got %d", len(records))
	}
}
