package sapflow

import (
	"context"
	"encoding/json"
	"path"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/hubertat/sapflow/mqtt"
)

const defaultInfluxMeasurement = "sapflow"
const heaterTopic = "heater"

// Sink receives every completed measurement.
type Sink interface {
	Name() string
	Write(ctx context.Context, m Measurement) error
	Close() error
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes measurements to an InfluxDB v2 bucket.
type InfluxSink struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	board  string
	client influxdb2.Client
	writer pointWriter
}

func (is *InfluxSink) Name() string {
	return "influx"
}

func (is *InfluxSink) Setup(board string) error {
	if len(is.Host) == 0 || len(is.Bucket) == 0 {
		return errors.New("influx sink needs Host and Bucket")
	}
	if len(is.Measurement) == 0 {
		is.Measurement = defaultInfluxMeasurement
	}

	is.board = board
	is.client = influxdb2.NewClient(is.Host, is.Token)
	is.writer = is.client.WriteAPIBlocking(is.Organization, is.Bucket)
	return nil
}

func (is *InfluxSink) points(m Measurement) (points []*write.Point) {
	for id, temp := range m.Temperatures {
		points = append(points, influxdb2.NewPoint(is.Measurement,
			map[string]string{"board": is.board, "probe": id},
			map[string]interface{}{"temperature": temp},
			m.Time))
	}

	if m.Shunt != nil {
		points = append(points, influxdb2.NewPoint(is.Measurement,
			map[string]string{"board": is.board},
			map[string]interface{}{"heater_voltage": m.Shunt.HeaterVoltage, "heater_current": m.Shunt.Current},
			m.Time))
	}

	return
}

func (is *InfluxSink) Write(ctx context.Context, m Measurement) error {
	points := is.points(m)
	if len(points) == 0 {
		return nil
	}

	err := is.writer.WritePoint(ctx, points...)
	if err != nil {
		return errors.Wrapf(err, "failed to write %d points to influx bucket %s", len(points), is.Bucket)
	}
	return nil
}

func (is *InfluxSink) Close() error {
	if is.client != nil {
		is.client.Close()
	}
	return nil
}

type mqttPayload struct {
	Value float64   `json:"value"`
	Time  time.Time `json:"time"`
}

// MqttSink publishes each value on its own topic under a common prefix.
type MqttSink struct {
	topic     string
	publisher mqtt.Publisher
	client    *mqtt.MqttClient
}

func (ms *MqttSink) Name() string {
	return "mqtt"
}

func (ms *MqttSink) publish(subtopic string, value float64, at time.Time) error {
	payload, err := json.Marshal(mqttPayload{Value: value, Time: at})
	if err != nil {
		return err
	}
	return ms.publisher.Publish(path.Join(ms.topic, subtopic), payload)
}

func (ms *MqttSink) Write(ctx context.Context, m Measurement) (err error) {
	for id, temp := range m.Temperatures {
		err = multierr.Append(err, ms.publish(id, temp, m.Time))
	}
	if m.Shunt != nil {
		err = multierr.Append(err, ms.publish(heaterTopic, m.Shunt.HeaterVoltage, m.Time))
	}
	return
}

func (ms *MqttSink) Close() error {
	if ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
