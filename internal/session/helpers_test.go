package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

func marshalRecord(rec *Record) ([]byte, error) {
	return json.Marshal(rec)
}

// failingStore simulates storage being unavailable (quota exceeded,
// storage disabled).
type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("store unavailable")
}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("store unavailable")
}
