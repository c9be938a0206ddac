package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultNeo4jURI, cfg.Neo4j.URI)
	assert.Equal(t, []string{DefaultOpenSearchAddress}, cfg.OpenSearch.Addresses)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultLanguage, cfg.Extraction.Language)
	assert.Equal(t, DefaultAnnotationModel, cfg.Extraction.Model)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Extraction.Language = "de"
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "de", cfg.Extraction.Language)
}

func TestApplyDefaults_NeverSetsMinFrequency(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 0, cfg.Extraction.MinFrequency)
}

func TestApplyDefaults_NilConfigNoPanic(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
