package override

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedCommand is returned for commands that cannot be parsed.
var ErrMalformedCommand = errors.New("malformed override command")

// Encode renders one mutation as a command line:
//
//	<field> <location> <scene> <object> <value...>
func Encode(key Key, m Mutation) string {
	var value string
	switch m.Field {
	case FieldSwitch, FieldLayer, FieldTimes:
		value = strconv.Itoa(m.Int)
	case FieldActivated:
		value = strconv.FormatBool(m.Bool)
	case FieldPosition:
		value = formatFloat(m.Vec[0]) + " " + formatFloat(m.Vec[1]) + " " + formatFloat(m.Vec[2])
	case FieldRotationY:
		value = formatFloat(m.Float)
	case FieldBidirectional:
		value = m.Bidirectional.String()
	}
	return fmt.Sprintf("%s %s %s %d %s", m.Field, key.Location, key.Scene, key.Object, value)
}

// Parse is the inverse of Encode.
func Parse(cmd string) (Key, Mutation, error) {
	parts := strings.Fields(cmd)
	if len(parts) < 5 {
		return Key{}, Mutation{}, fmt.Errorf("%w: %q", ErrMalformedCommand, cmd)
	}
	obj, err := strconv.Atoi(parts[3])
	if err != nil {
		return Key{}, Mutation{}, fmt.Errorf("%w: object id %q", ErrMalformedCommand, parts[3])
	}
	key := Key{Location: parts[1], Scene: parts[2], Object: obj}
	args := parts[4:]

	m := Mutation{Field: Field(parts[0])}
	switch m.Field {
	case FieldSwitch, FieldLayer, FieldTimes:
		if len(args) != 1 {
			return Key{}, Mutation{}, fmt.Errorf("%w: %q", ErrMalformedCommand, cmd)
		}
		if m.Int, err = strconv.Atoi(args[0]); err != nil {
			return Key{}, Mutation{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
		}
	case FieldActivated:
		if len(args) != 1 {
			return Key{}, Mutation{}, fmt.Errorf("%w: %q", ErrMalformedCommand, cmd)
		}
		if m.Bool, err = strconv.ParseBool(args[0]); err != nil {
			return Key{}, Mutation{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
		}
	case FieldPosition:
		if len(args) != 3 {
			return Key{}, Mutation{}, fmt.Errorf("%w: %q", ErrMalformedCommand, cmd)
		}
		for i := range args {
			if m.Vec[i], err = parseFloat(args[i]); err != nil {
				return Key{}, Mutation{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
			}
		}
	case FieldRotationY:
		if len(args) != 1 {
			return Key{}, Mutation{}, fmt.Errorf("%w: %q", ErrMalformedCommand, cmd)
		}
		if m.Float, err = parseFloat(args[0]); err != nil {
			return Key{}, Mutation{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
		}
	case FieldBidirectional:
		if len(args) != 1 {
			return Key{}, Mutation{}, fmt.Errorf("%w: %q", ErrMalformedCommand, cmd)
		}
		switch args[0] {
		case "none":
			m.Bidirectional = BidirectionalNone
		case "forward":
			m.Bidirectional = BidirectionalForward
		case "backward":
			m.Bidirectional = BidirectionalBackward
		default:
			return Key{}, Mutation{}, fmt.Errorf("%w: bidirectional %q", ErrMalformedCommand, args[0])
		}
	default:
		return Key{}, Mutation{}, fmt.Errorf("%w: unknown field %q", ErrMalformedCommand, parts[0])
	}
	return key, m, nil
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}

// validKey reports whether key survives a round trip through the command text.
func validKey(key Key) error {
	for _, part := range []string{key.Location, key.Scene} {
		if part == "" {
			return fmt.Errorf("override key %s: empty location or scene", key)
		}
		if strings.IndexFunc(part, unicode.IsSpace) >= 0 {
			return fmt.Errorf("override key %s: whitespace in id", key)
		}
	}
	return nil
}

// overrideCommands renders o as commands in compaction order.
func overrideCommands(key Key, o Override) []string {
	var out []string
	for _, f := range fieldOrder {
		var m Mutation
		switch f {
		case FieldActivated:
			if o.Activated == nil {
				continue
			}
			m = SetActivated(*o.Activated)
		case FieldSwitch:
			if o.Switch == nil {
				continue
			}
			m = SetSwitch(*o.Switch)
		case FieldTimes:
			if o.Times == nil {
				continue
			}
			m = SetTimes(*o.Times)
		case FieldLayer:
			if o.Layer == nil {
				continue
			}
			m = SetLayer(*o.Layer)
		case FieldPosition:
			if o.Position == nil {
				continue
			}
			m = SetPosition(*o.Position)
		case FieldRotationY:
			if o.RotationY == nil {
				continue
			}
			m = SetRotationY(*o.RotationY)
		case FieldBidirectional:
			if o.Bidirectional == nil {
				continue
			}
			m = SetBidirectional(*o.Bidirectional)
		}
		out = append(out, Encode(key, m))
	}
	return out
}

