package drivers

import (
	"bytes"
	"testing"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertUint16Slices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("len(got) = %d len(want) = %d", len(got), len(want))
		return
	}

	for key, val := range got {
		if want[key] != val {
			t.Errorf("for key [%d] got: %d want: %d", key, val, want[key])
		}
	}
}

func TestMockOutputSetState(t *testing.T) {
	out := MockOutput{}

	want := true
	out.Set(want)
	got, _ := out.GetState()
	assertBools(t, got, want)

	want = false
	out.Set(want)
	got, _ = out.GetState()
	assertBools(t, got, want)

	out.Set(false)
	if out.Switches() != 2 {
		t.Errorf("got %d switches want 2", out.Switches())
	}
}

func TestMockIoSetup(t *testing.T) {
	md := MockIoDriver{}

	assertBools(t, md.IsReady(), false)

	md.Setup([]uint16{2, 4})
	assertBools(t, md.IsReady(), true)
	assertUint16Slices(t, md.GetAllOutputs(), []uint16{2, 4})
}

func TestMockGetOutput(t *testing.T) {
	md := MockIoDriver{}
	md.Setup([]uint16{3})
	output, err := md.GetOutput(3)
	if err != nil {
		t.Fatalf("GetOutput returned err: %v", err)
	}

	output.Set(true)
	anotherOut, _ := md.GetOutput(3)
	got, _ := anotherOut.GetState()
	assertBools(t, got, true)

	_, err = md.GetOutput(4)
	if err == nil {
		t.Error("GetOutput of unknown pin returned nil error")
	}
}

func TestMockCloseSwitchesOff(t *testing.T) {
	md := MockIoDriver{}
	md.Setup([]uint16{3})
	output, _ := md.GetOutput(3)
	output.Set(true)

	md.Close()
	got, _ := output.GetState()
	assertBools(t, got, false)
	assertBools(t, md.IsReady(), false)
}

func TestMockMonitorStateChanges(t *testing.T) {
	md := MockIoDriver{}
	md.Setup([]uint16{7})
	buf := &bytes.Buffer{}
	md.MonitorStateChanges(buf)

	output, _ := md.GetOutput(7)
	output.Set(true)
	output.Set(true)

	want := "[pin 7] state changed to true\n"
	if buf.String() != want {
		t.Errorf("got %q want %q", buf.String(), want)
	}
}

func TestMapAllOutputDrivers(t *testing.T) {
	mapped := MapAllOutputDrivers()

	for _, name := range []string{"gpio", "mcpio", "mock_driver"} {
		if _, ok := mapped[name]; !ok {
			t.Errorf("driver %s missing", name)
		}
	}
}
