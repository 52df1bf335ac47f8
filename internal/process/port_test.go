package process

import (
	"context"
	"testing"

	"github.com/awsl-project/deskshell/internal/hostcmd"
)

const netstatSample = `
Active Connections

  Proto  Local Address          Foreign Address        State           PID
  TCP    0.0.0.0:135            0.0.0.0:0              LISTENING       1044
  TCP    127.0.0.1:5572         0.0.0.0:0              ABHÖREN         7312
  TCP    127.0.0.1:55720        127.0.0.1:5572         ESTABLISHED     9001
  TCP    [::]:5572              [::]:0                 LISTENING       7312
`

func TestParseNetstatPID(t *testing.T) {
	tests := []struct {
		port int
		want int
	}{
		{5572, 7312},
		{135, 1044},
		{55720, -1},
		{8080, -1},
	}
	for _, tt := range tests {
		if got := parseNetstatPID(netstatSample, tt.port); got != tt.want {
			t.Errorf("parseNetstatPID(%d) = %d, want %d", tt.port, got, tt.want)
		}
	}
}

func TestPIDByPortUnix(t *testing.T) {
	runner := &hostcmd.FakeRunner{Handler: func(name string, args []string) (hostcmd.Result, error) {
		if name != "lsof" {
			t.Fatalf("unexpected command %s", name)
		}
		if args[1] == "-iTCP:5572" {
			return hostcmd.Result{Stdout: "812\n"}, nil
		}
		return hostcmd.Result{Code: 1}, nil
	}}
	l := NewPortLocator(runner, "darwin")

	if pid, err := l.PIDByPort(context.Background(), 5572); err != nil || pid != 812 {
		t.Errorf("PIDByPort(5572) = %d, %v", pid, err)
	}
	if pid, err := l.PIDByPort(context.Background(), 5573); err != nil || pid != -1 {
		t.Errorf("PIDByPort(5573) = %d, %v", pid, err)
	}
	if _, err := l.PIDByPort(context.Background(), 70000); err == nil {
		t.Error("expected error for out of range port")
	}
}

func TestStopPortOwner(t *testing.T) {
	runner := &hostcmd.FakeRunner{Handler: func(name string, args []string) (hostcmd.Result, error) {
		return hostcmd.Result{Stdout: netstatSample}, nil
	}}
	ctrl := newFakeController()
	ctrl.add(7312, &fakeProc{honorsGraceful: true})
	term := NewTerminator(ctrl, WithPollInterval(testInterval))

	pid, outcome, err := term.StopPortOwner(context.Background(), NewPortLocator(runner, "windows"), 5572, testTimeout)
	if err != nil || pid != 7312 || outcome != Terminated {
		t.Fatalf("StopPortOwner() = %d, %v, %v", pid, outcome, err)
	}

	pid, _, err = term.StopPortOwner(context.Background(), NewPortLocator(runner, "windows"), 8080, testTimeout)
	if err != nil || pid != -1 {
		t.Fatalf("StopPortOwner(free) = %d, %v", pid, err)
	}
}
