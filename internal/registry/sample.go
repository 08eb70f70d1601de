package registry

import (
	"time"

	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/store"
)

// SampleID is the fixed id of the synthetic sample connection. The record
// is never persisted.
const SampleID = "sample"

// StaticSampleProvider serves the sample connection from configuration.
type StaticSampleProvider struct {
	record   *store.ConnectionRecord
	password string
}

// NewStaticSampleProvider builds the provider from the sample section of
// the service configuration.
func NewStaticSampleProvider(cfg config.SampleConfig) *StaticSampleProvider {
	return &StaticSampleProvider{
		record: &store.ConnectionRecord{
			ID:           SampleID,
			Name:         cfg.Name,
			Engine:       cfg.Engine,
			Host:         cfg.Host,
			Port:         cfg.Port,
			DatabaseName: cfg.Database,
			Username:     cfg.Username,
			IsSample:     true,
			CreatedAt:    time.Time{},
			UpdatedAt:    time.Time{},
		},
		password: cfg.Password,
	}
}

// Record implements SampleProvider.
func (p *StaticSampleProvider) Record() *store.ConnectionRecord {
	return p.record
}

// Password implements SampleProvider.
func (p *StaticSampleProvider) Password() string {
	return p.password
}
