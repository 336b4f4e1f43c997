package strut

import (
	"github.com/bytedance/sonic"
)

// jsonAPI is the shared sonic configuration. ConfigStd matches
// encoding/json semantics and sorts map keys, which keeps marshaled
// documents stable across calls.
var jsonAPI = sonic.ConfigStd

func jsonMarshal(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

func jsonMarshalIndent(v any) ([]byte, error) {
	return jsonAPI.MarshalIndent(v, "", "  ")
}

func jsonUnmarshal(data []byte, v any) error {
	return jsonAPI.Unmarshal(data, v)
}
