// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/ava-labs/avalanchego/utils/units"
)

// ErrRecursiveReference is returned when an array contains itself.
var ErrRecursiveReference = errors.New("recursive reference")

// ParamType is the declared type of a contract argument or result.
type ParamType byte

const (
	AnyType ParamType = iota
	BooleanType
	IntegerType
	ByteArrayType
	StringType
	Hash160Type
	Hash256Type
	ArrayType
)

var paramTypeNames = map[ParamType]string{
	AnyType:       "Any",
	BooleanType:   "Boolean",
	IntegerType:   "Integer",
	ByteArrayType: "ByteArray",
	StringType:    "String",
	Hash160Type:   "Hash160",
	Hash256Type:   "Hash256",
	ArrayType:     "Array",
}

func (t ParamType) String() string {
	if name, ok := paramTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ParamType(%d)", byte(t))
}

// ParseParamType is the inverse of ParamType.String.
func ParseParamType(s string) (ParamType, error) {
	for t, name := range paramTypeNames {
		if name == s {
			return t, nil
		}
	}
	return AnyType, fmt.Errorf("unknown parameter type %q", s)
}

// Parameter is a typed value. Value holds, by Type:
//   - Any: nil
//   - Boolean: bool
//   - Integer: *big.Int
//   - ByteArray: []byte
//   - String: string
//   - Hash160: ids.ShortID
//   - Hash256: ids.ID
//   - Array: []Parameter
type Parameter struct {
	Type  ParamType
	Value interface{}
}

type parameterJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (p Parameter) MarshalJSON() ([]byte, error) {
	var value interface{}
	switch p.Type {
	case AnyType:
	case BooleanType, StringType, Hash160Type, Hash256Type, ArrayType:
		value = p.Value
	case IntegerType:
		v, ok := p.Value.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("integer parameter holds %T", p.Value)
		}
		value = v.String()
	case ByteArrayType:
		b, ok := p.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("byte array parameter holds %T", p.Value)
		}
		s, err := formatting.Encode(formatting.HexNC, b)
		if err != nil {
			return nil, err
		}
		value = s
	default:
		return nil, fmt.Errorf("cannot marshal %s", p.Type)
	}

	out := parameterJSON{Type: p.Type.String()}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

func (p *Parameter) UnmarshalJSON(b []byte) error {
	var in parameterJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	t, err := ParseParamType(in.Type)
	if err != nil {
		return err
	}
	p.Type = t

	if t == AnyType {
		p.Value = nil
		return nil
	}
	if len(in.Value) == 0 {
		return fmt.Errorf("missing value for %s parameter", t)
	}

	switch t {
	case BooleanType:
		var v bool
		err = json.Unmarshal(in.Value, &v)
		p.Value = v
	case IntegerType:
		var s string
		if err = json.Unmarshal(in.Value, &s); err != nil {
			// bare JSON numbers are accepted too
			s = string(in.Value)
		}
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("invalid integer %q", s)
		}
		err = nil
		p.Value = v
	case ByteArrayType:
		var s string
		if err = json.Unmarshal(in.Value, &s); err != nil {
			return err
		}
		p.Value, err = formatting.Decode(formatting.HexNC, s)
	case StringType:
		var v string
		err = json.Unmarshal(in.Value, &v)
		p.Value = v
	case Hash160Type:
		var v ids.ShortID
		err = json.Unmarshal(in.Value, &v)
		p.Value = v
	case Hash256Type:
		var v ids.ID
		err = json.Unmarshal(in.Value, &v)
		p.Value = v
	case ArrayType:
		var v []Parameter
		err = json.Unmarshal(in.Value, &v)
		p.Value = v
	}
	return err
}

const (
	// MaxResultItems bounds the number of parameters a conversion expands
	// into. Arrays sharing references count once per occurrence.
	MaxResultItems = 1 << 16
	// MaxResultBytes bounds the integer and byte string payload of a
	// conversion.
	MaxResultBytes = 4 * units.MiB
)

// ErrResultTooLarge is returned when a conversion exceeds MaxResultItems or
// MaxResultBytes.
var ErrResultTooLarge = errors.New("result too large")

// ToParameter converts a result stack item to a Parameter. It fails with
// ErrRecursiveReference if an array is reachable from itself.
func ToParameter(item Item) (Parameter, error) {
	return newConverter().convert(item)
}

// ToParameters converts a whole result stack under one shared budget.
func ToParameters(items []Item) ([]Parameter, error) {
	c := newConverter()
	params := make([]Parameter, len(items))
	for i, item := range items {
		p, err := c.convert(item)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return params, nil
}

type converter struct {
	path  set.Set[*Array]
	items int
	bytes int
}

func newConverter() *converter {
	return &converter{path: set.NewSet[*Array](0)}
}

func (c *converter) spend(items, bytes int) error {
	c.items += items
	c.bytes += bytes
	if c.items > MaxResultItems || c.bytes > MaxResultBytes {
		return ErrResultTooLarge
	}
	return nil
}

func (c *converter) convert(item Item) (Parameter, error) {
	switch v := item.(type) {
	case Integer:
		if err := c.spend(1, (v.Value.BitLen()+7)/8); err != nil {
			return Parameter{}, err
		}
		return Parameter{Type: IntegerType, Value: new(big.Int).Set(v.Value)}, nil
	case Boolean:
		if err := c.spend(1, 0); err != nil {
			return Parameter{}, err
		}
		return Parameter{Type: BooleanType, Value: bool(v)}, nil
	case ByteString:
		if err := c.spend(1, len(v)); err != nil {
			return Parameter{}, err
		}
		return Parameter{Type: ByteArrayType, Value: []byte(v)}, nil
	case Null:
		if err := c.spend(1, 0); err != nil {
			return Parameter{}, err
		}
		return Parameter{Type: AnyType}, nil
	case *Array:
		if c.path.Contains(v) {
			return Parameter{}, ErrRecursiveReference
		}
		if err := c.spend(1, 0); err != nil {
			return Parameter{}, err
		}
		c.path.Add(v)
		defer c.path.Remove(v)

		items := make([]Parameter, len(v.Items))
		for i, child := range v.Items {
			p, err := c.convert(child)
			if err != nil {
				return Parameter{}, err
			}
			items[i] = p
		}
		return Parameter{Type: ArrayType, Value: items}, nil
	default:
		return Parameter{}, fmt.Errorf("cannot convert %T to a parameter", item)
	}
}
