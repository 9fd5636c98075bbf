// Package models provides the request and response bodies of the charging
// optimization API.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Body status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope carries the fields shared by every success body.
type Envelope struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Success returns a success envelope stamped with now.
func Success(now time.Time) Envelope {
	return Envelope{Status: StatusSuccess, Timestamp: now}
}

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is either a coordinate object or a free-text address. In JSON it
// is written as {"lat":..,"lon":..} or as a plain string.
type Location struct {
	Point   *Point
	Address string
}

var errLocationFormat = errors.New("location must be an address string or an object with lat and lon")

// UnmarshalJSON accepts a string or a {lat, lon} object.
func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = Location{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Location{Address: strings.TrimSpace(s)}
		return nil
	}

	var obj struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errLocationFormat
	}
	if obj.Lat == nil || obj.Lon == nil {
		return errLocationFormat
	}
	*l = Location{Point: &Point{Lat: *obj.Lat, Lon: *obj.Lon}}
	return nil
}

// MarshalJSON writes the point or the address.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Point != nil {
		return json.Marshal(l.Point)
	}
	return json.Marshal(l.Address)
}

// IsZero reports an absent location.
func (l Location) IsZero() bool {
	return l.Point == nil && l.Address == ""
}
