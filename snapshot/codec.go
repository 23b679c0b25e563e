package snapshot

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type envelope[T any] struct {
	// WrittenAt is Unix milliseconds
	WrittenAt int64 `json:"writtenAt"`
	Items     []T   `json:"items"`
}

func encode[T any](items []T, at time.Time) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(envelope[T]{WrittenAt: at.UnixMilli(), Items: items})
	if err != nil {
		return nil, ErrEncode(err)
	}
	return data, nil
}

func decode[T any](data []byte) ([]T, time.Time, error) {
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, ErrDecode(err)
	}
	if env.WrittenAt <= 0 {
		return nil, time.Time{}, ErrDecode(errMissingTimestamp)
	}
	return env.Items, time.UnixMilli(env.WrittenAt), nil
}
