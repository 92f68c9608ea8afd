package supervisor

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRestarts != 5 {
		t.Errorf("expected MaxRestarts 5, got %d", config.MaxRestarts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("expected InitialBackoff 1s, got %v", config.InitialBackoff)
	}
	if config.MaxBackoff != 60*time.Second {
		t.Errorf("expected MaxBackoff 60s, got %v", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("expected BackoffMultiplier 2.0, got %v", config.BackoffMultiplier)
	}
	if config.ResetWindow != 5*time.Minute {
		t.Errorf("expected ResetWindow 5m, got %v", config.ResetWindow)
	}
}

func TestNew(t *testing.T) {
	s := New(Config{Command: "test-server"})

	if s == nil {
		t.Fatal("expected non-nil supervisor")
	}
	if s.State() != StateIdle {
		t.Errorf("expected state Idle, got %v", s.State())
	}
	if s.RestartCount() != 0 {
		t.Errorf("expected restart count 0, got %d", s.RestartCount())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateRestarting, "restarting"},
		{StateFailed, "failed"},
		{StateStopped, "stopped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCrash, "crash"},
		{EventRestarting, "restarting"},
		{EventRecovered, "recovered"},
		{EventFailed, "failed"},
		{EventType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.eventType.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.eventType, got, tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := 1 * time.Second
	max := 60 * time.Second
	multiplier := 2.0

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 32 * time.Second},
		{7, 60 * time.Second}, // capped at max
		{10, 60 * time.Second},
	}

	for _, tt := range tests {
		got := CalculateBackoff(tt.attempt, initial, max, multiplier)
		if got != tt.want {
			t.Errorf("CalculateBackoff(%d, %v, %v, %v) = %v, want %v",
				tt.attempt, initial, max, multiplier, got, tt.want)
		}
	}
}

func TestSupervisor_IsReadyBeforeStart(t *testing.T) {
	s := New(Config{Command: "test-server"})
	if s.IsReady() {
		t.Error("expected IsReady to return false before start")
	}
}

func TestSupervisor_EventsChannel(t *testing.T) {
	s := New(Config{Command: "test-server"})
	if s.Events() == nil {
		t.Error("expected non-nil events channel")
	}
}

func TestSupervisor_StopBeforeStart(t *testing.T) {
	s := New(Config{Command: "test-server"})
	if err := s.Stop(nil); err != nil {
		t.Errorf("Stop on idle supervisor should not return error: %v", err)
	}
}

func TestSupervisor_StartAndStop(t *testing.T) {
	// "cat" echoes stdin to stdout until its stdin is closed, making it a
	// convenient stand-in for a long-lived downstream LSP server process.
	s := New(Config{Command: "cat"})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsReady() {
		t.Error("expected IsReady after Start")
	}

	inst := s.Current()
	if inst == nil {
		t.Fatal("expected a current instance after Start")
	}
	if inst.ID == "" {
		t.Error("expected a non-empty instance ID")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if s.State() != StateStopped {
		t.Errorf("State() = %v, want StateStopped", s.State())
	}

	// Draining the closed events channel must not block or panic.
	for range s.Events() {
	}
}

func TestSupervisor_RestartsOnCrash(t *testing.T) {
	s := New(Config{
		Command:           "false", // exits immediately with status 1
		MaxRestarts:       2,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
		ResetWindow:       time.Minute,
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	var sawFailed bool
loop:
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				break loop
			}
			if ev.Type == EventFailed {
				sawFailed = true
				break loop
			}
		case <-deadline:
			break loop
		}
	}

	if !sawFailed {
		t.Error("expected supervisor to report EventFailed after exceeding MaxRestarts")
	}
	if s.State() != StateFailed {
		t.Errorf("State() = %v, want StateFailed", s.State())
	}
}
