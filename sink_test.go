package sapflow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"github.com/hubertat/sapflow/conversion"
)

type fakePublisher struct {
	payloads map[string][]byte
	err      error
}

func (fp *fakePublisher) Publish(topic string, payload []byte) error {
	if fp.payloads == nil {
		fp.payloads = make(map[string][]byte)
	}
	fp.payloads[topic] = payload
	return fp.err
}

type fakePointWriter struct {
	points []*write.Point
}

func (fw *fakePointWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	fw.points = append(fw.points, point...)
	return nil
}

func testMeasurement() Measurement {
	shunt := conversion.ShuntFromVoltage(0.05)
	return Measurement{
		Time:         time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Temperatures: map[string]float64{"inner": 21.5, "outer": 22},
		Shunt:        &shunt,
	}
}

func TestMqttSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := &MqttSink{topic: "garden/oak", publisher: pub}

	err := sink.Write(context.Background(), testMeasurement())
	if err != nil {
		t.Fatalf("Write returned err: %v", err)
	}

	if len(pub.payloads) != 3 {
		t.Fatalf("got %d topics want 3: %v", len(pub.payloads), pub.payloads)
	}

	var payload mqttPayload
	err = json.Unmarshal(pub.payloads["garden/oak/inner"], &payload)
	if err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	assertFloats(t, payload.Value, 21.5)

	err = json.Unmarshal(pub.payloads["garden/oak/heater"], &payload)
	if err != nil {
		t.Fatalf("bad heater payload: %v", err)
	}
	if payload.Value < 4.999 || payload.Value > 5.001 {
		t.Errorf("got heater %f want 5", payload.Value)
	}
}

func TestMqttSinkErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	sink := &MqttSink{topic: "sapflow", publisher: pub}

	err := sink.Write(context.Background(), testMeasurement())
	if err == nil {
		t.Error("got nil error from failing publisher")
	}
}

func TestInfluxSinkPoints(t *testing.T) {
	fw := &fakePointWriter{}
	sink := &InfluxSink{Measurement: "sapflow", Bucket: "trees", board: "oak", writer: fw}

	err := sink.Write(context.Background(), testMeasurement())
	if err != nil {
		t.Fatalf("Write returned err: %v", err)
	}
	if len(fw.points) != 3 {
		t.Fatalf("got %d points want 3", len(fw.points))
	}

	lines := []string{}
	for _, p := range fw.points {
		lines = append(lines, write.PointToLineProtocol(p, time.Second))
	}
	joined := strings.Join(lines, "")
	for _, want := range []string{"probe=inner", "probe=outer", "board=oak", "temperature=21.5", "heater_voltage="} {
		if !strings.Contains(joined, want) {
			t.Errorf("line protocol missing %q:\n%s", want, joined)
		}
	}
}

func TestInfluxSinkEmpty(t *testing.T) {
	fw := &fakePointWriter{}
	sink := &InfluxSink{writer: fw}

	err := sink.Write(context.Background(), Measurement{Temperatures: map[string]float64{}})
	if err != nil {
		t.Fatalf("Write returned err: %v", err)
	}
	if len(fw.points) != 0 {
		t.Errorf("got %d points for empty measurement", len(fw.points))
	}
}

func TestInfluxSinkSetup(t *testing.T) {
	sink := &InfluxSink{}
	if sink.Setup("oak") == nil {
		t.Error("got nil error without Host and Bucket")
	}

	sink = &InfluxSink{Host: "http://localhost:8086", Bucket: "trees"}
	err := sink.Setup("oak")
	if err != nil {
		t.Fatalf("Setup returned err: %v", err)
	}
	defer sink.Close()
	if sink.Measurement != defaultInfluxMeasurement {
		t.Errorf("got measurement %s want %s", sink.Measurement, defaultInfluxMeasurement)
	}
}
