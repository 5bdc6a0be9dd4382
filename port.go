package tactus

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type (
	// PortType is the declared type of the value stored in a Port.
	PortType int

	// PortValue is a tagged union of all the values a Port can hold. Only the
	// field matching Type is meaningful.
	PortValue struct {
		Type    PortType
		Bool    bool
		Int64   int64
		Uint64  uint64
		Float   float32
		Double  float64
		Pointer any // payload for PortPointer and PortObject
	}

	// PluginPort describes a port the way a plugin descriptor would. It is
	// plain metadata: the core never interprets it beyond clamping in the
	// fx package.
	PluginPort struct {
		Min         float64
		Max         float64
		Default     float64
		Toggled     bool
		Enumeration bool
		ScalePoints []string `yaml:",flow,omitempty"`
	}

	// PortListener is notified after a successful SafeWrite. Listeners are
	// called outside the port lock, so they may read the port again.
	PortListener func(port *Port, value PortValue)

	// Port is a named, typed value cell exposed by a Recall for automation,
	// user interfaces and the DSP code itself. All access to the value goes
	// through SafeRead and SafeWrite. A *Port may be shared by several
	// holders; it lives as long as the longest holder.
	Port struct {
		PluginName  string
		Specifier   string
		ControlPort string // e.g. "1/8"
		IsPointer   bool
		PluginPort  *PluginPort

		mu        sync.Mutex
		valueType PortType
		value     PortValue

		listenerMu sync.Mutex
		listeners  map[int]PortListener
		nextID     int
	}
)

const (
	PortBool PortType = iota
	PortInt64
	PortUint64
	PortFloat
	PortDouble
	PortPointer
	PortObject
)

var portTypeNames = [...]string{"bool", "int64", "uint64", "float", "double", "pointer", "object"}

func (t PortType) String() string {
	if t < 0 || int(t) >= len(portTypeNames) {
		return fmt.Sprintf("PortType(%d)", int(t))
	}
	return portTypeNames[t]
}

// ParsePortType is the inverse of PortType.String.
func ParsePortType(s string) (PortType, error) {
	for i, n := range portTypeNames {
		if n == s {
			return PortType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown port type %q", s)
}

func BoolValue(v bool) PortValue      { return PortValue{Type: PortBool, Bool: v} }
func Int64Value(v int64) PortValue    { return PortValue{Type: PortInt64, Int64: v} }
func Uint64Value(v uint64) PortValue  { return PortValue{Type: PortUint64, Uint64: v} }
func FloatValue(v float32) PortValue  { return PortValue{Type: PortFloat, Float: v} }
func DoubleValue(v float64) PortValue { return PortValue{Type: PortDouble, Double: v} }
func PointerValue(v any) PortValue    { return PortValue{Type: PortPointer, Pointer: v} }
func ObjectValue(v any) PortValue     { return PortValue{Type: PortObject, Pointer: v} }

// Number returns the value converted to float64, for the numeric types.
// Booleans give 0 or 1. Pointers and objects give 0.
func (v PortValue) Number() float64 {
	switch v.Type {
	case PortBool:
		if v.Bool {
			return 1
		}
	case PortInt64:
		return float64(v.Int64)
	case PortUint64:
		return float64(v.Uint64)
	case PortFloat:
		return float64(v.Float)
	case PortDouble:
		return v.Double
	}
	return 0
}

// NumberValue builds a value of type t from a float64. It is the inverse of
// Number for the scalar types and is used when ports are described in
// recipe tables.
func NumberValue(t PortType, f float64) PortValue {
	switch t {
	case PortBool:
		return BoolValue(f != 0)
	case PortInt64:
		return Int64Value(int64(f))
	case PortUint64:
		if f < 0 {
			f = 0
		}
		return Uint64Value(uint64(f))
	case PortFloat:
		return FloatValue(float32(f))
	case PortDouble:
		return DoubleValue(f)
	}
	return PortValue{Type: t}
}

// NewPort creates a port whose declared type is the type of initial.
func NewPort(pluginName, specifier, controlPort string, initial PortValue) *Port {
	return &Port{
		PluginName:  pluginName,
		Specifier:   specifier,
		ControlPort: controlPort,
		IsPointer:   initial.Type == PortPointer,
		valueType:   initial.Type,
		value:       initial,
	}
}

// Type returns the declared type of the port.
func (p *Port) Type() PortType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueType
}

// SafeRead returns a copy of the current value. For pointer ports the copy
// shares the pointee.
func (p *Port) SafeRead() PortValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// SafeWrite stores v if its type matches the declared type of the port and
// then notifies the listeners. On a mismatch the stored value is left
// untouched and ErrPortTypeMismatch is returned.
func (p *Port) SafeWrite(v PortValue) error {
	p.mu.Lock()
	if v.Type != p.valueType {
		declared := p.valueType
		p.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function":  "Port.SafeWrite",
			"specifier": p.Specifier,
			"declared":  declared.String(),
			"written":   v.Type.String(),
		}).Warn("dropping port write with mismatched type")
		return fmt.Errorf("port %s: %w", p.Specifier, ErrPortTypeMismatch)
	}
	p.value = v
	p.mu.Unlock()

	p.listenerMu.Lock()
	listeners := make([]PortListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.listenerMu.Unlock()
	for _, l := range listeners {
		l(p, v)
	}
	return nil
}

// OnSafeWrite registers a listener. The returned function unregisters it.
func (p *Port) OnSafeWrite(l PortListener) (cancel func()) {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	if p.listeners == nil {
		p.listeners = make(map[int]PortListener)
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	return func() {
		p.listenerMu.Lock()
		delete(p.listeners, id)
		p.listenerMu.Unlock()
	}
}

// Duplicate returns a new port with the same metadata and a copy of the
// current value. Listeners are not copied. A pointer-valued port copies the
// pointer only; callers needing a snapshot of the pointee must copy it.
func (p *Port) Duplicate() *Port {
	v := p.SafeRead()
	ret := NewPort(p.PluginName, p.Specifier, p.ControlPort, v)
	ret.IsPointer = p.IsPointer
	if p.PluginPort != nil {
		pp := *p.PluginPort
		pp.ScalePoints = append([]string(nil), p.PluginPort.ScalePoints...)
		ret.PluginPort = &pp
	}
	return ret
}

// Number is a shorthand for SafeRead().Number().
func (p *Port) Number() float64 {
	return p.SafeRead().Number()
}

// Float64s returns the pointee of a pointer port holding a []float64, or nil.
func (p *Port) Float64s() []float64 {
	v := p.SafeRead()
	if s, ok := v.Pointer.([]float64); ok {
		return s
	}
	return nil
}
