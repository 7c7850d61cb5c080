package launcher

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Encode converts a JSON-tagged value into a Struct message.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}

	var fields map[string]any
	if err = json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", v, err)
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}

	return message, nil
}

// Decode fills v from a Struct message. A nil message leaves v untouched.
func Decode(message *structpb.Struct, v any) error {
	if message == nil {
		return nil
	}

	data, err := message.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal struct: %w", err)
	}

	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}

	return nil
}
