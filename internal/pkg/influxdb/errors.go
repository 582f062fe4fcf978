package influxdb

import "errors"

var ErrConnectionFailed = errors.New("influxdb: connection failed")
