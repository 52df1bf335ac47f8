package process

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"
)

const (
	testInterval = 5 * time.Millisecond
	testTimeout  = 60 * time.Millisecond
)

func TestTerminateOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		proc        *fakeProc
		want        Outcome
		wantForced  int
		waitTimeout bool
	}{
		{
			name:       "absent pid",
			proc:       nil,
			want:       Terminated,
			wantForced: 0,
		},
		{
			name:       "exits on graceful",
			proc:       &fakeProc{honorsGraceful: true, diesAfter: 3},
			want:       Terminated,
			wantForced: 0,
		},
		{
			name:        "ignores graceful, dies on forced",
			proc:        &fakeProc{honorsForced: true},
			want:        Terminated,
			wantForced:  1,
			waitTimeout: true,
		},
		{
			name:        "survives everything",
			proc:        &fakeProc{},
			want:        Failed,
			wantForced:  1,
			waitTimeout: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := newFakeController()
			if tt.proc != nil {
				ctrl.add(100, tt.proc)
			}
			term := NewTerminator(ctrl, WithPollInterval(testInterval))

			start := time.Now()
			got, err := term.Terminate(context.Background(), 100, testTimeout)
			elapsed := time.Since(start)

			if err != nil {
				t.Fatalf("Terminate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Terminate() = %v, want %v", got, tt.want)
			}
			if f := ctrl.get(100).forced; f != tt.wantForced {
				t.Errorf("forced signals = %d, want %d", f, tt.wantForced)
			}
			if tt.waitTimeout && elapsed < testTimeout {
				t.Errorf("returned after %v, before timeout %v", elapsed, testTimeout)
			}
			if !tt.waitTimeout && elapsed >= testTimeout {
				t.Errorf("returned after %v, expected before timeout", elapsed)
			}
		})
	}
}

func TestTerminateWaitsForForcedKillToLand(t *testing.T) {
	ctrl := newFakeController()
	ctrl.add(30, &fakeProc{honorsForced: true, killDelay: testInterval / 2})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	got, err := term.Terminate(context.Background(), 30, testTimeout)
	if err != nil || got != Terminated {
		t.Fatalf("Terminate() = %v, %v; want Terminated", got, err)
	}
	if f := ctrl.get(30).forced; f != 1 {
		t.Errorf("forced signals = %d, want 1", f)
	}
}

func TestTerminateSlowForcedKillFails(t *testing.T) {
	ctrl := newFakeController()
	ctrl.add(31, &fakeProc{honorsForced: true, killDelay: time.Hour})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	got, err := term.Terminate(context.Background(), 31, testTimeout)
	if err != nil || got != Failed {
		t.Fatalf("Terminate() = %v, %v; want Failed", got, err)
	}
	if f := ctrl.get(31).forced; f != 1 {
		t.Errorf("forced signals = %d, want 1", f)
	}
}

func TestOutcomeErr(t *testing.T) {
	if err := Terminated.Err(7); err != nil {
		t.Errorf("Terminated.Err() = %v", err)
	}
	err := Failed.Err(7)
	if !errors.Is(err, ErrSurvived) || err.Error() != "process 7 survived forced termination" {
		t.Errorf("Failed.Err() = %v", err)
	}
}

func TestTerminateIdempotent(t *testing.T) {
	ctrl := newFakeController()
	ctrl.add(7, &fakeProc{honorsGraceful: true})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	for i := 0; i < 2; i++ {
		got, err := term.Terminate(context.Background(), 7, testTimeout)
		if err != nil || got != Terminated {
			t.Fatalf("call %d: Terminate() = %v, %v", i+1, got, err)
		}
	}
}

func TestTerminateSignalErrorsDoNotAbort(t *testing.T) {
	ctrl := newFakeController()
	ctrl.gracefulErr = errNotDelivered
	ctrl.add(9, &fakeProc{honorsForced: true})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	got, err := term.Terminate(context.Background(), 9, testTimeout)
	if err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if got != Terminated {
		t.Errorf("Terminate() = %v, want Terminated", got)
	}
	if p := ctrl.get(9); p.probes < 2 {
		t.Errorf("probes = %d, poll loop should have kept going", p.probes)
	}
}

func TestTerminateForcedErrorStillProbes(t *testing.T) {
	ctrl := newFakeController()
	ctrl.forcedErr = errNotDelivered
	ctrl.add(11, &fakeProc{})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	got, err := term.Terminate(context.Background(), 11, testTimeout)
	if err != nil || got != Failed {
		t.Fatalf("Terminate() = %v, %v; want Failed", got, err)
	}
}

func TestTerminateCancelled(t *testing.T) {
	ctrl := newFakeController()
	ctrl.add(12, &fakeProc{})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := term.Terminate(ctx, 12, time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Terminate() error = %v, want deadline exceeded", err)
	}
	if got != 0 {
		t.Errorf("abandoned call reported outcome %v", got)
	}
	if f := ctrl.get(12).forced; f != 0 {
		t.Errorf("forced signals = %d after cancellation", f)
	}
}

func TestTerminateUnsupported(t *testing.T) {
	term := NewTerminator(nil)
	if _, err := term.Terminate(context.Background(), 1, time.Second); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("error = %v, want ErrUnsupportedPlatform", err)
	}
	if _, err := term.StopAll(context.Background(), []int{1}, time.Second); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("StopAll error = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestTerminateInvalidPID(t *testing.T) {
	term := NewTerminator(newFakeController())
	for _, pid := range []int{0, -5} {
		if _, err := term.Terminate(context.Background(), pid, time.Second); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("Terminate(%d) error = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestTerminateObserverPhases(t *testing.T) {
	ctrl := newFakeController()
	ctrl.add(20, &fakeProc{honorsForced: true})

	var (
		mu     sync.Mutex
		phases []Phase
	)
	term := NewTerminator(ctrl,
		WithPollInterval(testInterval),
		WithObserver(func(pid int, p Phase) {
			mu.Lock()
			phases = append(phases, p)
			mu.Unlock()
		}),
	)

	if _, err := term.Terminate(context.Background(), 20, testTimeout); err != nil {
		t.Fatal(err)
	}

	want := []Phase{PhaseRequested, PhasePolling, PhaseEscalated, PhaseConfirmed}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
}

func TestTerminateDefaultTimeoutApplied(t *testing.T) {
	ctrl := newFakeController()
	term := NewTerminator(ctrl)

	start := time.Now()
	got, err := term.Terminate(context.Background(), 999999999, 0)
	if err != nil || got != Terminated {
		t.Fatalf("Terminate() = %v, %v", got, err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Errorf("absent pid took %v", time.Since(start))
	}
}

func TestTerminateProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		proc := &fakeProc{
			honorsGraceful: rapid.Bool().Draw(rt, "honorsGraceful"),
			diesAfter:      rapid.IntRange(0, 20).Draw(rt, "diesAfter"),
			honorsForced:   rapid.Bool().Draw(rt, "honorsForced"),
		}
		timeout := time.Duration(rapid.IntRange(5, 15).Draw(rt, "timeoutMs")) * time.Millisecond

		ctrl := newFakeController()
		ctrl.add(1, proc)
		term := NewTerminator(ctrl, WithPollInterval(time.Millisecond))

		start := time.Now()
		got, err := term.Terminate(context.Background(), 1, timeout)
		elapsed := time.Since(start)
		if err != nil {
			rt.Fatalf("Terminate() error = %v", err)
		}

		p := ctrl.get(1)
		if p.graceful != 1 {
			rt.Fatalf("graceful signals = %d, want 1", p.graceful)
		}
		if p.forced > 1 {
			rt.Fatalf("forced signals = %d, want at most 1", p.forced)
		}
		if proc.honorsForced && got != Terminated {
			rt.Fatalf("process honoring forced kill reported %v", got)
		}
		if got == Failed {
			if elapsed < timeout {
				rt.Fatalf("Failed after %v, before timeout %v", elapsed, timeout)
			}
			if p.forced != 1 {
				rt.Fatalf("Failed without a forced attempt")
			}
		}
		if got == Terminated && p.alive {
			rt.Fatalf("Terminated while the process is still alive")
		}
	})
}
