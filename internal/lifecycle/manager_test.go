package lifecycle

import (
	"strings"
	"testing"
)

func TestReadHandshakeFindsReadyLine(t *testing.T) {
	input := strings.NewReader("not json\n" + `{"ready":false}` + "\n" + `{"ready":true,"backend":"memory","version":"0.1.0"}` + "\n")
	infoCh := make(chan ConnectionInfo, 1)
	errCh := make(chan error, 1)

	readHandshake(input, infoCh, errCh)

	select {
	case info := <-infoCh:
		if !info.Ready || info.Backend != "memory" {
			t.Fatalf("unexpected info: %+v", info)
		}
	case err := <-errCh:
		t.Fatalf("expected a ready handshake, got error: %v", err)
	}
}

func TestReadHandshakeReportsErrorWhenStreamClosesWithoutReady(t *testing.T) {
	input := strings.NewReader("garbage\nmore garbage\n")
	infoCh := make(chan ConnectionInfo, 1)
	errCh := make(chan error, 1)

	readHandshake(input, infoCh, errCh)

	select {
	case info := <-infoCh:
		t.Fatalf("expected no ready info, got %+v", info)
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected a non-nil error")
		}
	}
}

func TestManagerIsRunningReflectsProcessAndHandshakeJointly(t *testing.T) {
	m := New("/bin/true", nil, nil, Callbacks{})
	if m.IsRunning() {
		t.Fatalf("expected a freshly constructed manager to report not running")
	}
}
