package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// Coordinates is a resolved point. The zero value is the unresolved sentinel
// and serializes as [null, null].
type Coordinates struct {
	Lat   float64
	Lon   float64
	Valid bool
}

// Point returns resolved coordinates.
func Point(lat, lon float64) Coordinates {
	return Coordinates{Lat: lat, Lon: lon, Valid: true}
}

// String formats resolved coordinates with six decimals.
func (c Coordinates) String() string {
	if !c.Valid {
		return "unresolved"
	}
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// MarshalJSON encodes the coordinates as a two-element array.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("[null,null]"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.WriteString(strconv.FormatFloat(c.Lat, 'f', -1, 64))
	buf.WriteByte(',')
	buf.WriteString(strconv.FormatFloat(c.Lon, 'f', -1, 64))
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes [lat, lon] or [null, null]. Mixed arrays are rejected
// so a partially resolved point can never enter the cache.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return eris.Wrap(err, "model: decode coordinates")
	}
	if len(pair) != 2 {
		return eris.Errorf("model: coordinates must have 2 elements, got %d", len(pair))
	}
	switch {
	case pair[0] == nil && pair[1] == nil:
		*c = Coordinates{}
	case pair[0] != nil && pair[1] != nil:
		*c = Point(*pair[0], *pair[1])
	default:
		return eris.New("model: coordinates must be both set or both null")
	}
	return nil
}
