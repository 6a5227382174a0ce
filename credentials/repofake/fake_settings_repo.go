package credentialrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/pkg/errors"
)

var _ credentials.SettingsRepo = (*FakeSettingsRepo)(nil)

type FakeSettingsRepo struct {
	rows    map[string]*credentials.LegacySettings
	failAll error
	lock    sync.RWMutex
}

func NewFakeSettingsRepo() *FakeSettingsRepo {
	return &FakeSettingsRepo{
		rows: make(map[string]*credentials.LegacySettings),
	}
}

// Put seeds a legacy row
func (r *FakeSettingsRepo) Put(settings *credentials.LegacySettings) {
	r.lock.Lock()
	defer r.lock.Unlock()
	copied := *settings
	r.rows[settings.UserID] = &copied
}

func (r *FakeSettingsRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failAll = err
}

func (r *FakeSettingsRepo) Get(_ context.Context, userID string) (*credentials.LegacySettings, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.failAll != nil {
		return nil, errors.Wrap(r.failAll, "FakeSettingsRepo.Get")
	}
	row, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}
