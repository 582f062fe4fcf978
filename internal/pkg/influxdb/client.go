package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/anicoll/harmony-helper/internal/pkg/config"
	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

const (
	measurement        = "harmony_helper_sensor"
	defaultPingTimeout = 5 * time.Second
)

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Client writes sensor transitions as points. Writes block until InfluxDB accepts them.
type Client struct {
	client influxdb2.Client
	writer pointWriter
}

func Connect(ctx context.Context, cfg config.InfluxConfig) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &Client{client: client, writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

// RegisterSensor is a no-op, series are created on first write.
func (c *Client) RegisterSensor(context.Context, model.SensorSnapshot) error {
	return nil
}

func (c *Client) Write(ctx context.Context, data []model.SensorSnapshot) error {
	points := make([]*write.Point, 0, len(data))
	for _, s := range data {
		points = append(points, sensorPoint(s))
	}
	if len(points) == 0 {
		return nil
	}
	return c.writer.WritePoint(ctx, points...)
}

func sensorPoint(s model.SensorSnapshot) *write.Point {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(
		measurement,
		map[string]string{
			"unique_id": s.UniqueID,
			"helper":    s.Helper,
			"command":   s.Command,
			"source":    s.Source,
		},
		map[string]interface{}{
			"state":          s.State.String(),
			"on":             s.State == model.SensorOn,
			"activity":       s.Activity,
			"device":         s.Attributes[model.AttrDevice],
			"device_command": s.Attributes[model.AttrCommand],
		},
		ts,
	)
}
