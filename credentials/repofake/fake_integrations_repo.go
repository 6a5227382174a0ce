package credentialrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/pkg/errors"
)

var _ credentials.IntegrationsRepo = (*FakeIntegrationsRepo)(nil)

type FakeIntegrationsRepo struct {
	records     map[credentials.Key]*credentials.Record
	failAll     error
	failUpserts map[string]error // service name to error
	upserts     int
	lock        sync.RWMutex
}

func NewFakeIntegrationsRepo() *FakeIntegrationsRepo {
	return &FakeIntegrationsRepo{
		records:     make(map[credentials.Key]*credentials.Record),
		failUpserts: make(map[string]error),
	}
}

// FailWith makes every operation return err until cleared with nil
func (r *FakeIntegrationsRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failAll = err
}

// FailUpsertFor makes upserts for one service name fail
func (r *FakeIntegrationsRepo) FailUpsertFor(serviceName string, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failUpserts[serviceName] = err
}

func (r *FakeIntegrationsRepo) Get(_ context.Context, userID, serviceName string) (*credentials.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.failAll != nil {
		return nil, errors.Wrap(r.failAll, "FakeIntegrationsRepo.Get")
	}
	record, ok := r.records[credentials.Key{UserID: userID, ServiceName: serviceName}]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

func (r *FakeIntegrationsRepo) Upsert(_ context.Context, record *credentials.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.failAll != nil {
		return errors.Wrap(r.failAll, "FakeIntegrationsRepo.Upsert")
	}
	if err, ok := r.failUpserts[record.ServiceName]; ok {
		return errors.Wrapf(err, "FakeIntegrationsRepo.Upsert %s", record.ServiceName)
	}

	stored := record.Clone()
	if existing, ok := r.records[record.Key()]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	}
	r.records[record.Key()] = stored
	r.upserts++
	return nil
}

func (r *FakeIntegrationsRepo) Delete(_ context.Context, userID, serviceName string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.failAll != nil {
		return errors.Wrap(r.failAll, "FakeIntegrationsRepo.Delete")
	}
	delete(r.records, credentials.Key{UserID: userID, ServiceName: serviceName})
	return nil
}

// Upserts counts successful writes
func (r *FakeIntegrationsRepo) Upserts() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.upserts
}

// All returns a copy of every stored record
func (r *FakeIntegrationsRepo) All() []*credentials.Record {
	r.lock.RLock()
	defer r.lock.RUnlock()

	records := make([]*credentials.Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record.Clone())
	}
	return records
}
