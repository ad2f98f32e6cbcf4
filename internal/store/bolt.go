package store

import (
	"encoding/json"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"
)

// EventStore persists events in a bbolt file, one bucket, JSON values.
type EventStore struct {
	DbFile   string
	FileMode os.FileMode
	Db       *bolt.DB
	Bucket   string
}

func NewEventStore(file string, mode os.FileMode, bucket string) (*EventStore, error) {
	db, err := bolt.Open(file, mode, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v: %w", file, err)
	}
	e := &EventStore{
		DbFile:   file,
		FileMode: mode,
		Db:       db,
		Bucket:   bucket,
	}

	if err := e.createBucket(); err != nil {
		return nil, fmt.Errorf("bucket %s: %w", bucket, err)
	}
	return e, nil
}

func (e *EventStore) createBucket() error {
	return e.Db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(e.Bucket))
		return err
	})
}

func (e *EventStore) Close() error {
	return e.Db.Close()
}

func (e *EventStore) Put(key string, event *Event) error {
	return e.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(e.Bucket))

		buf, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), buf)
	})
}

func (e *EventStore) Get(key string) (*Event, error) {
	var event Event
	err := e.Db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(e.Bucket))
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("event %v not found", key)
		}
		return json.Unmarshal(data, &event)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (e *EventStore) List() ([]*Event, error) {
	var events []*Event
	err := e.Db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(e.Bucket))
		return b.ForEach(func(k, v []byte) error {
			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			events = append(events, &event)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (e *EventStore) Count() (int, error) {
	count := 0
	err := e.Db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(e.Bucket))
		return b.ForEach(func(k, v []byte) error {
			count++
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
