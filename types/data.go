package types

import (
	"github.com/goccy/go-json"
	"github.com/juju/errors"
	"github.com/spf13/cast"
)

// Data is the generic key/value payload used for node config and result metadata.
// The Graph Model stores it untyped; adapters project it into their own shapes.
type Data map[string]any

func (d Data) Get(key string) (any, bool) {
	v, exists := d[key]
	return v, exists
}

func (d Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

func (d Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d Data) GetFloat64(key string) (float64, bool) {
	v, exists := d.Get(key)
	return cast.ToFloat64(v), exists
}

func (d Data) GetBool(key string) (bool, bool) {
	v, exists := d.Get(key)
	return cast.ToBool(v), exists
}

func (d Data) GetStringSlice(key string) ([]string, bool) {
	v, exists := d.Get(key)
	if !exists {
		return nil, false
	}
	return cast.ToStringSlice(v), true
}

// GetData returns a nested map value, such as per-chain residue counts.
func (d Data) GetData(key string) (Data, bool) {
	v, exists := d.Get(key)
	if !exists {
		return nil, false
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, false
	}
	return Data(m), true
}

// GetStruct decodes the value under key into s through a JSON round trip.
func (d Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFoundf("key: %s", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Trace(err)
	}
	return json.Unmarshal(b, s)
}

func (d Data) Set(key string, value any) {
	d[key] = value
}

// Clone returns a shallow copy. Values are shared; adapters treat them as read-only.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	c := make(Data, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Merge returns a copy of d with all of other's keys layered on top.
func (d Data) Merge(other Data) Data {
	c := d.Clone()
	if c == nil {
		c = Data{}
	}
	for k, v := range other {
		c[k] = v
	}
	return c
}
