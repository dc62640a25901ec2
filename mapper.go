package vireo

import (
	"encoding/json"
	"strings"
)

// Mapper converts a raw JSON object plus a dotted key path into a typed
// model. Mappers must be deterministic and side-effect-free: the engine may
// invoke them for live responses and for cached ones alike, and removes the
// cache entry for a request whose cached body a mapper rejects.
type Mapper[T any] func(raw map[string]any, keyPath string) (T, error)

// MapJSON is the default mapper. It resolves the key path inside the raw
// object and round-trips the located value through encoding/json into T.
//
// Example:
//
//	// body: {"data": {"video": {"name": "clip"}}}
//	video, err := vireo.MapJSON[Video](raw, "data.video")
func MapJSON[T any](raw map[string]any, keyPath string) (T, error) {
	var model T

	value, err := lookupKeyPath(raw, keyPath)
	if err != nil {
		return model, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return model, NewError(KindMappingFailed, "encoding located value", err)
	}
	if err := json.Unmarshal(encoded, &model); err != nil {
		return model, NewError(KindMappingFailed, "decoding into model", err)
	}
	return model, nil
}

// lookupKeyPath walks a dotted path into a raw object. An empty path
// resolves to the object itself.
func lookupKeyPath(raw map[string]any, keyPath string) (any, error) {
	if keyPath == "" {
		return raw, nil
	}

	var value any = raw
	for _, segment := range strings.Split(keyPath, ".") {
		object, ok := value.(map[string]any)
		if !ok {
			return nil, NewError(KindMappingFailed, "key path "+keyPath+" crosses a non-object value", nil)
		}
		value, ok = object[segment]
		if !ok {
			return nil, NewError(KindMappingFailed, "key path "+keyPath+" not present in response", nil)
		}
	}
	return value, nil
}
