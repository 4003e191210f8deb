package docai

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// RawJSON renders a vendor proto message as JSON, for debug output.
func RawJSON(msg proto.Message) (string, error) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
