package store

import "fmt"

// InMemoryEventStore keeps events in a plain map; useful for tests and
// short-lived runs.
type InMemoryEventStore struct {
	Db map[string]*Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		Db: make(map[string]*Event),
	}
}

func (i *InMemoryEventStore) Put(key string, e *Event) error {
	i.Db[key] = e
	return nil
}

func (i *InMemoryEventStore) Get(key string) (*Event, error) {
	e, ok := i.Db[key]
	if !ok {
		return nil, fmt.Errorf("event with key %s does not exist", key)
	}
	return e, nil
}

func (i *InMemoryEventStore) List() ([]*Event, error) {
	events := make([]*Event, 0, len(i.Db))
	for _, e := range i.Db {
		events = append(events, e)
	}
	return events, nil
}

func (i *InMemoryEventStore) Count() (int, error) {
	return len(i.Db), nil
}
